// Command cvcutter turns raw concert recordings into per-performance clips
// and uploads them. See `cvcutter --help` for the available subcommands.
package main
