// Package channels holds the broadcast service clients and the post
// templates they render. Each supported service gets its own client type;
// the resolver maps a channel record onto the right one.
package channels
