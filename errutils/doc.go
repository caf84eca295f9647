package errutils

// Package errutils provides a set of utilities for working with errors in Go.

// Example:
//
// The following example demonstrates how to use `NewCustomError` to create errors from a template:
//
//     package main
//
//     import (
//         "fmt"
//         "oss.nandlabs.io/ecscheduler/errutils"
//     )
//
//     var errNotFound = errutils.NewCustomError("item %s not found")
//
//     func main() {
//         err := errNotFound.Err("abc")
//         fmt.Println(err)
//     }
//
// In the above example, the `Err` method fills the template with its parameters and the program
// prints "item abc not found".
