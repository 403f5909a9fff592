// Package tree provides the annotated phylogenetic tree that crisprtower lays
// out.
//
// # Overview
//
// A [Tree] is an arena of [Node] values addressed by [NodeID]. Node 0 is not
// necessarily the root; use [Tree.Root]. Each node carries a branch distance
// to its parent and a fixed-size [Events] table indexed by [EventKind], one
// [EventList] per kind.
//
// Trees are built once with a [Builder] and are read-only afterwards. Layout
// state such as switched child order lives in the layout package, not here.
//
// # Parsing
//
// [ParseNewick] reads the flexible "internal names" Newick dialect:
// leaves must be named, internal nodes may carry a name, and every node may
// carry a ":distance" suffix. A missing distance is 0.
//
//	b, err := tree.ParseNewick("((A:1,B:2)Inner1:0.5,C:3);")
//	if err != nil {
//	    return err
//	}
//	id, _ := b.Find("A")
//	b.SetEvents(id, tree.Gains, tree.EventList{{"10", "11", "12"}})
//	t, err := b.Build()
//
// # Event lists
//
// Source data gives each node either a flat list of spacer ids or a list of
// lists. A flat list becomes a single [Group]; a list of lists becomes one
// group per sublist. Pooling never crosses a group boundary.
package tree
