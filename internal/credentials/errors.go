package credentials

import "errors"

// ErrNoCredential indicates neither the configuration nor the credential
// file produced a usable token.
var ErrNoCredential = errors.New("credentials: no usable pricing token")
