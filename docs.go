// pac4j provides security engine packages for authenticating users against
// an OpenID Connect provider: token exchange with negotiated client
// authentication and user profile assembly from ID token, user-info and
// access token claims.
//
// See README.md
package pac4j
