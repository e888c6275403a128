// Package cli turns a node into a command-line program.
//
// The program's run subcommand invokes the node, or a node nested in it,
// with inputs read from files and writes the outputs back to files:
//
//	mapreduce run --input multiplier=./m.json --output sum=./sum.json
//	mapreduce run --node-name multiply-by --input n=./numbers --input multiplier=./m.json
//
// A directory holding a manifest.json is read as a partitioned value, and a
// partitioned output is written as such a directory. Runtime settings come
// from config.Load; see package config.
package cli
