// Package credentials resolves the bearer token used against the pricing API.
//
// The token comes from configuration when set. Otherwise it is read from a
// credential file, by default $HOME/.config/pricecollector/credentials.yaml,
// which holds either a YAML document:
//
//	username: me@example.com
//	password: 5K4MVS-OjfWhK_4yrjOlFe1F6kJXPVf7eQYggo8ebAE
//
// where the password is the token, or a single line containing only the token.
//
// A missing credential is fatal at startup and is reported as ErrNoCredential.
package credentials
