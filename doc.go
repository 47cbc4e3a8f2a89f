// Package auth provides cookie session authentication for a user
// directory: signup with emailed activation, login with optional
// remember me cookies, password reset links and ownership guards.
//
// Sessions:
//   - SessionManager is shared by all requests. SessionMiddleware calls
//     Begin for every request and stores the RequestSession in locals
//     and in the request context.
//   - RequestSession loads the session lazily and saves on every write.
//     LogIn rotates the session id. CurrentUser consults the session
//     first and then the signed user_id and remember_token cookies.
//
// Tokens:
//   - Activation, reset and remember tokens are random url safe strings.
//     Only their bcrypt digests are stored on the user.
//
// Activity sinks:
//   - ActivitySink receives login, logout, signup, activation, reset and
//     deletion events. Sinks run best effort, errors are only logged.
//
// Guards:
//   - LoggedIn, AuthorizedUser, CorrectUser and AdminOnly are router
//     middleware. Denials carry a redirect target and an optional notice,
//     see RedirectFromError and NoticeFromError.
package auth
