package tree_test

import (
	"fmt"

	"github.com/matzehuels/crisprtower/pkg/tree"
)

func ExampleParseNewick() {
	b, err := tree.ParseNewick("((A:1,B:2)Inner1:0.5,C:3);")
	if err != nil {
		panic(err)
	}
	id, _ := b.Find("A")
	b.SetEvents(id, tree.Gains, tree.Flat("10", "11", "12"))

	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	for _, leaf := range t.Leaves() {
		n := t.Node(leaf)
		fmt.Printf("%s dist=%g gains=%d\n", n.Name, n.Distance, n.Events.Get(tree.Gains).Len())
	}
	// Output:
	// A dist=1 gains=3
	// B dist=2 gains=0
	// C dist=3 gains=0
}

func ExampleTree_Tags() {
	t, _ := tree.Parse("((A,B)Inner1,C)Inner0;")
	for _, tag := range t.Tags(true) {
		fmt.Println(tag.Text)
	}
	// Output:
	// Inner0  Inner1  C
	// Inner1  A  B
	// C
	// A
	// B
}
