package common

// AuthorizationHeader carries the bearer access token on API requests.
const AuthorizationHeader = "Authorization"

// ClientIDHeader identifies the originating client session so the push
// channel can skip echoing change events back to the writer.
const ClientIDHeader = "X-Notekeeper-Client"
