// Package store defines the ItemStore persistence contract, its error
// values, and the transaction helper shared by the SQL-backed stores.
package store
