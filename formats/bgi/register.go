package bgi

import "github.com/dsnet/vnscript/script"

// Register adds every BGI format builder (BP scripts, BSI section maps,
// CBG images, V1 bytecode scripts, DSC containers) to d.
func Register(d *script.Dispatcher) {
	d.Register(BPBuilder{})
	d.Register(BSIBuilder{})
	d.Register(CBGBuilder{})
	d.Register(V1Builder{})
	d.Register(DSCBuilder{})
}
