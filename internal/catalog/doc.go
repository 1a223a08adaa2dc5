// Package catalog persists request history and extracted pose templates in a
// small SQLite database.
//
// Every generation request records a run row when it starts and transitions it
// to completed, failed, or rejected when it ends. Pose extraction records the
// template it wrote so later requests and the CLI listings can find it.
package catalog
