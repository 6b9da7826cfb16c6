// Package persistence provides the durable device identity and session
// state for the provisioning service.
//
// Three artifacts live on disk:
//
//   - The state document, a small JSON file holding the lock posture and
//     the last issued nonce counter. It is written synchronously on every
//     state transition that matters (lock, unlock, clean shutdown), so a
//     crash loses at most the in-flight session's replay table, never the
//     lock posture. A corrupted document is renamed aside and reset to
//     defaults; startup never fails on it.
//   - The secret file, whose first line is the shared password. It is
//     read-only for this process; an empty or missing file means no
//     password is configured and the device can never lock.
//   - The device identifier, derived once per process start by hashing a
//     best-effort combination of hardware identifiers (CPU serial, MAC
//     addresses), falling back to a random value when none are found.
package persistence
