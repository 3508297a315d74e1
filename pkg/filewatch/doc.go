// Package filewatch reloads a file whenever it changes on disk.
//
// Both binaries use it for config hot reload: the loader is called on every
// write or create event and its result is handed to onChange. A failed load
// is logged and the previous value stays in effect.
package filewatch
