// Package auth resolves the account igbot logs in with.
//
// The plain credential file (secret.txt by default) holds name:value lines
// and provides defaults for the -u/-p flags. Accounts saved with
// "igbot auth login" live in the system keychain when one is available and
// in an AES-GCM encrypted file otherwise; IGBOT_USERNAME and IGBOT_PASSWORD
// are consulted last.
package auth
