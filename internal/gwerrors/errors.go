// Package gwerrors contains all common errors used by the gateway.
package gwerrors

import "fmt"

// Error kinds surfaced by the request dispatcher
var ErrUnauthenticated = fmt.Errorf("the session has ended, please log in again")
var ErrForbidden = fmt.Errorf("the operation is not permitted")
var ErrNotFound = fmt.Errorf("the requested resource cannot be found")
var ErrValidation = fmt.Errorf("the request was rejected by validation")
var ErrServerFault = fmt.Errorf("the user-account API failed, please try again later")
var ErrTransport = fmt.Errorf("the user-account API cannot be reached")
var ErrUnexpectedStatus = fmt.Errorf("the user-account API returned an unexpected status")

var ErrInvalidCredentials = fmt.Errorf("invalid user ID or password")
var ErrSessionNotFound = fmt.Errorf("cannot find the session")
var ErrSessionParse = fmt.Errorf("cannot parse session from context")
var ErrIncompleteSession = fmt.Errorf("a session needs both an access and a refresh token")
var ErrNoRefreshToken = fmt.Errorf("there is no refresh token to use")
