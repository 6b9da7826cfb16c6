// Package service implements the characteristic-facing WiFi provisioning
// service: it dispatches the command vocabulary written by the phone,
// drives scans and connection attempts on the WiFi manager, and feeds
// responses back through the notification pipeline.
//
// All inbound bytes pass through the session authenticator first; the
// dispatcher only ever sees clear protocol text. Blocking WiFi work
// (scanning, connecting) runs on its own goroutine and hands results
// back through the thread-safe framer queue, never by touching protocol
// state directly.
package service
