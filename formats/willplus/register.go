package willplus

import "github.com/dsnet/vnscript/script"

// Register adds the WillPlus Ws2 builder to d.
func Register(d *script.Dispatcher) {
	d.Register(Builder{})
}
