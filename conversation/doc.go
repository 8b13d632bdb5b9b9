// Package conversation implements the append-only, routed conversation log
// shared by collaborating units.
//
// Every AddMessage call canonicalizes the raw reply, numbers it and appends it
// to the global log and to the sender and recipient inboxes as one critical
// section, so turn numbers are strictly increasing and gap-free across all
// concurrent writers. Reads hold the same lock and return copies.
package conversation
