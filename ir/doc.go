// Package ir is an in-memory model of LLVM IR as read from bitcode: types,
// values, the use lists that link them, constants, metadata, functions and
// modules.
//
// Every Value heads an intrusive doubly linked list of the Uses that refer
// to it, so ReplaceAllUsesWith and walking users are cheap. Types and
// scalar constants are uniqued by a Context; for types, pointer equality is
// type identity.
//
// Misuse of the graph (releasing a value that is still used, replacing a
// value with one of another type) panics. Everything that can go wrong
// because of bad input is reported by the readers that build the graph.
package ir
