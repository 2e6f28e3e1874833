// Package store holds named index definitions and their documents in memory.
package store
