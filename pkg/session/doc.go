// Package session implements the lock/unlock authentication state machine
// that guards the WiFi provisioning characteristic.
//
// # States
//
// A device with a configured password is either Unlocked (traffic is
// clear UTF-8 text) or Locked (traffic is encrypted with the negotiated
// cipher). The posture survives restarts; it is restored from the
// persisted state document at startup. A device without a password can
// never lock.
//
// # Locking
//
// A phone locks the device by sending the encrypted "LockRequest"
// sentinel while the device is Unlocked. If the ciphertext validates the
// device persists the Locked posture and answers "Locked" (encrypted).
// Anything else that fails to decrypt while Unlocked counts as a failed
// lock attempt: the device answers "Unlocked" and, after three
// consecutive failures, arms a disconnect timer to shed a brute-forcing
// peer.
//
// # Unlocking
//
// Unlocking is deferred: the "Unlocking" acknowledgment must be sent
// encrypted (the phone will not trust a cleartext confirmation), but the
// device must stop encrypting immediately afterwards. The notification
// pump therefore calls DisableCipher only once that specific frame has
// been handed to the transport, which guarantees ordering without a race
// between "message queued" and "cipher disabled".
//
// # Garbled Traffic
//
// While Locked, undecryptable frames are answered "Garbled1" then
// "Garbled2" with the disconnect timer refreshed; a third consecutive
// failure closes the connection immediately through the injected
// disconnect callback. Stale (replayed) nonces are silently dropped and
// never answered.
package session
