// Package rest is the HTTP transport for the hosted backend.
//
// Transport speaks the REST dialect: remote procedures at
// POST /rest/v1/rpc/{name} and tables at /rest/v1/{table} with
// column=eq.value filters. AuthAPI speaks the auth dialect under /auth/v1:
// authorize, token (pkce and refresh_token grants), user and logout.
//
// Every request carries the project key in the apikey header. The
// Authorization header carries the signed-in user's access token, or the
// project key when nobody is signed in.
package rest
