package kirikiri

import "github.com/dsnet/vnscript/script"

// Register adds the XP3 archive reader to d. The writer (kirikiri.Writer)
// is a standalone construction API with no Script counterpart, the same
// way the original tool's packer is a separate command from its reader.
func Register(d *script.Dispatcher) {
	d.Register(Builder{})
}
