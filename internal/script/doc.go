// Package script pipes text through an ordered list of named transforms.
//
// A name resolves, in order, to:
//  1. an entry of that exact file name in the scripts directory,
//  2. a built-in transform when the name starts with "@",
//  3. an executable found on PATH for any other name,
//
// and otherwise the step is a no-op that logs a warning. External programs
// receive the text on standard input and their standard output becomes the
// new text, byte for byte: no trailing newline is trimmed or added. Programs
// are executed directly, never through a shell.
package script
