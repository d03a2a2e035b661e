package escude

import "github.com/dsnet/vnscript/script"

// Register adds the ESC-ARC2 archive builder to d.
func Register(d *script.Dispatcher) {
	d.Register(Builder{})
}
