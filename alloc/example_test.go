package alloc_test

import (
	"errors"
	"fmt"

	"github.com/joshuapare/segalloc/alloc"
)

func Example() {
	ba, err := alloc.New(alloc.Config{
		Classes: []alloc.ClassSpec{{Count: 4, Size: 16}, {Count: 2, Size: 64}},
		Arena:   alloc.HeapArena,
	})
	if err != nil {
		panic(err)
	}
	defer ba.Close()

	fmt.Println("max:", ba.MaxSize())

	var refs []alloc.Ref
	for range 5 {
		ref, _, err := ba.Allocate(16)
		if err != nil {
			panic(err)
		}
		refs = append(refs, ref)
	}
	fmt.Println("refs:", refs)
	fmt.Println("max:", ba.MaxSize())

	_, _, err = ba.Allocate(64)
	fmt.Println("64:", err)
	_, _, err = ba.Allocate(16)
	fmt.Println("exhausted:", errors.Is(err, alloc.ErrExhausted))

	ba.Deallocate(refs[0], 16)
	fmt.Println("max:", ba.MaxSize())

	// Output:
	// max: 64
	// refs: [128 144 160 176 0]
	// max: 64
	// 64: <nil>
	// exhausted: true
	// max: 16
}

func ExampleParseSchedule() {
	classes, err := alloc.ParseSchedule("4x16,2x64")
	if err != nil {
		panic(err)
	}
	b, err := alloc.NewBlockAllocator(alloc.Config{Classes: classes[:1], Arena: alloc.HeapArena})
	if err != nil {
		panic(err)
	}
	defer b.Close()

	fmt.Println(classes, b.MaxSize())
	// Output: [4x16 2x64] 16
}
