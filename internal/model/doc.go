// Package model defines the canonical data structures shared by the
// snarf packages.
//
// # Record
//
// Record is the normalized metadata of one remote catalog item. Optional
// fields are pointers so that "unset" and "empty" stay distinguishable:
//
//	rec := &model.Record{ID: "42", SourceURL: url, Title: model.Ptr("Sunset")}
//	values, ok := rec.Value(model.FieldTitle) // ["Sunset"], true
//	_, ok = rec.Value(model.FieldLocation)    // nil, false
//
// # File Names
//
// The destination file name is the sanitized title plus the extension of the
// source URL. AssignFileNames resolves collisions inside a batch by appending
// the item ID to later duplicates:
//
//	model.AssignFileNames(records)
//	fmt.Println(records[0].FileName) // "Sunset.jpg"
package model
