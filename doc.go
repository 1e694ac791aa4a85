// Package idmap implements an identity map for in-memory entities: at most one
// live instance per (entity type, identity) pair. Construction requests for an
// identity that is already cached update the cached instance in place instead of
// building a new one, and every acquisition is reference counted so unused
// entries can be purged.
//
// Components:
//   - Cache: owns the entry map and the usage counters (one mutex for both),
//     allocates per-type namespaces and runs purge/reset.
//   - Type[E]: a wrapped constructor for one entity type (see Wrap).
//   - Handle: embedded by entity types; provides a key-scoped Release().
//   - Archive (optional): attribute snapshots of purged entities kept in a
//     Provider (Ristretto, BigCache, Redis) and used to hydrate later misses.
//
// Usage:
//
//	c := idmap.New(idmap.Options{})
//	users, _ := idmap.Wrap(c, "user", "id", model.Constructor("id"))
//
//	a, _ := users.New(ctx, idmap.Attrs{"id": 5}, nil)
//	b, _ := users.New(ctx, idmap.Attrs{"id": 5, "name": "x"}, nil) // a == b
//	a.Release()
//	b.Release()
//	c.Purge(ctx) // key (user, 5) is gone
//
// Entities built without an identity are returned immediately and registered
// the first time their identity attribute is assigned.
//
// Release may be called more times than the entity was acquired. Counts then go
// negative; Purge treats any count <= 0 as unused.
package idmap
