// Package vault loads trusted certificate authority definitions from
// a Vault KV v2 secret, so CA fingerprints and revocation lists can be
// managed centrally instead of shipped in the config file.
package vault
