package util

import "strconv"

// StorageKey returns the archive key for an identity within a named namespace:
//
//	idmap:<len(ns)>:<ns>:<id>
//
// The length prefix keeps the key unambiguous whatever the name contains.
func StorageKey(ns, id string) string {
	return "idmap:" + strconv.Itoa(len(ns)) + ":" + ns + ":" + id
}
