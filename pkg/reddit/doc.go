// Package reddit is the platform API client.
//
// A Client exchanges the account credentials for a bearer token with the
// password grant, caches it until 30 seconds before expiry, and issues one
// search or listing request per fan-out target as the post sequence is
// consumed. Records are normalized into Posts and run through the media
// URL heuristic in ExtractMediaURL.
//
// Only the first page of each listing is fetched.
package reddit
