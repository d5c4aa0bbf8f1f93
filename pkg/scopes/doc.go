// Package scopes implements the "<resource>:<action>" permission grammar
// used by API keys, including the "<resource>:*" and global "*" wildcard
// forms and validation against a closed vocabulary.
package scopes
