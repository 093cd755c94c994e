// Package community implements the post, comment, user and search operations
// of the community API on top of the cached data layer. Every read and write
// goes through datalayer, so cache coherence holds for these operations too.
package community
