// Package tableau is a small client for the Tableau REST and Metadata APIs.
//
// It covers exactly what exposure generation needs: personal access token
// sign-in, the project listing, and GraphQL queries against the metadata
// graph. Requests are rate limited; they are not retried.
package tableau
