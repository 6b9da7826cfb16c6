// Package wifi defines the boundary to the host's WiFi stack.
//
// The protocol layers never talk to NetworkManager or wpa_supplicant
// directly; they see a Manager. The package ships a simulated manager
// for tests and the interactive console. Real backends implement the
// same interface out of tree.
package wifi
