// Package structpack implements the declarative record-serialization layer
// (spec component C3): struct tags drive binary unpack/pack of fixed
// records such as the CBG header without each format hand-rolling its own
// field-by-field read/write.
//
// Tag syntax, via the `struct` field tag:
//
//	`struct:"skip"`                     not serialized; decode fills the zero value
//	`struct:"fstring=16"`               fixed-length string, padded to 16 bytes
//	`struct:"fstring=16,pad=0x20"`      fixed-length string, pad byte 0x20
//	`struct:"fstring=16,notrim"`        fixed-length string, keep trailing zeros
//	`struct:"pstring=u8"`               length-prefixed string (u8/u16/u32/u64 prefix)
//	`struct:"fvec=8"`                   fixed-count vector of exactly 8 elements
//
// Fields without a tag dispatch to the Go type's natural width (uint8,
// uint16, uint32, uint64, int16, int32) in little-endian order; other
// kinds are rejected with an error.
package structpack

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dsnet/vnscript/binio"
	"github.com/dsnet/vnscript/internal/errs"
)

type fieldTag struct {
	skip     bool
	fstring  int
	hasFstr  bool
	padByte  byte
	noTrim   bool
	pstring  string // "", "u8", "u16", "u32", "u64"
	fvec     int
	hasFvec  bool
}

func parseTag(raw string) fieldTag {
	var ft fieldTag
	if raw == "" {
		return ft
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "skip":
			ft.skip = true
		case part == "notrim":
			ft.noTrim = true
		case strings.HasPrefix(part, "fstring="):
			n, _ := strconv.Atoi(strings.TrimPrefix(part, "fstring="))
			ft.fstring = n
			ft.hasFstr = true
			ft.padByte = 0
		case strings.HasPrefix(part, "pad="):
			v, _ := strconv.ParseUint(strings.TrimPrefix(part, "pad="), 0, 8)
			ft.padByte = byte(v)
		case strings.HasPrefix(part, "pstring="):
			ft.pstring = strings.TrimPrefix(part, "pstring=")
		case strings.HasPrefix(part, "fvec="):
			n, _ := strconv.Atoi(strings.TrimPrefix(part, "fvec="))
			ft.fvec = n
			ft.hasFvec = true
		}
	}
	return ft
}

// Unpack reads a struct pointed to by v (must be a pointer to a struct)
// from r field by field, per each field's `struct` tag.
func Unpack(r *binio.Reader, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return errs.New(errs.EncodingError, "structpack.Unpack requires a pointer to a struct")
	}
	sv := rv.Elem()
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		ft := parseTag(sf.Tag.Get("struct"))
		fv := sv.Field(i)
		if ft.skip {
			continue
		}
		if err := unpackField(r, fv, ft); err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
	}
	return nil
}

func unpackField(r *binio.Reader, fv reflect.Value, ft fieldTag) error {
	switch {
	case ft.hasFstr:
		b, err := r.ReadBytes(ft.fstring)
		if err != nil {
			return err
		}
		s := b
		if !ft.noTrim {
			s = trimTrailing(b, ft.padByte)
		}
		fv.SetString(string(s))
		return nil
	case ft.pstring != "":
		n, err := readLen(r, ft.pstring)
		if err != nil {
			return err
		}
		b, err := r.ReadBytes(int(n))
		if err != nil {
			return err
		}
		fv.SetString(string(b))
		return nil
	case ft.hasFvec:
		if fv.Kind() != reflect.Slice {
			return errs.New(errs.EncodingError, "fvec requires a slice field")
		}
		elemType := fv.Type().Elem()
		out := reflect.MakeSlice(fv.Type(), ft.fvec, ft.fvec)
		for i := 0; i < ft.fvec; i++ {
			ev := reflect.New(elemType).Elem()
			if err := unpackField(r, ev, fieldTag{}); err != nil {
				return err
			}
			out.Index(i).Set(ev)
		}
		fv.Set(out)
		return nil
	default:
		return unpackNative(r, fv)
	}
}

func unpackNative(r *binio.Reader, fv reflect.Value) error {
	switch fv.Kind() {
	case reflect.Uint8:
		v, err := r.ReadU8()
		if err != nil {
			return err
		}
		fv.SetUint(uint64(v))
	case reflect.Uint16:
		v, err := r.ReadU16LE()
		if err != nil {
			return err
		}
		fv.SetUint(uint64(v))
	case reflect.Uint32:
		v, err := r.ReadU32LE()
		if err != nil {
			return err
		}
		fv.SetUint(uint64(v))
	case reflect.Uint64:
		v, err := r.ReadU64LE()
		if err != nil {
			return err
		}
		fv.SetUint(v)
	case reflect.Int16:
		v, err := r.ReadI16LE()
		if err != nil {
			return err
		}
		fv.SetInt(int64(v))
	case reflect.Int32:
		v, err := r.ReadI32LE()
		if err != nil {
			return err
		}
		fv.SetInt(int64(v))
	default:
		return errs.Newf(errs.EncodingError, "unsupported field kind %s", fv.Kind())
	}
	return nil
}

func readLen(r *binio.Reader, width string) (uint64, error) {
	switch width {
	case "u8":
		v, err := r.ReadU8()
		return uint64(v), err
	case "u16":
		v, err := r.ReadU16LE()
		return uint64(v), err
	case "u32":
		v, err := r.ReadU32LE()
		return uint64(v), err
	case "u64":
		return r.ReadU64LE()
	default:
		return 0, errs.Newf(errs.EncodingError, "unknown pstring length type %q", width)
	}
}

func trimTrailing(b []byte, pad byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == pad {
		i--
	}
	return b[:i]
}

// Pack writes v (a struct) to w field by field, per each field's `struct`
// tag, the inverse of Unpack.
func Pack(w *binio.Writer, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs.New(errs.EncodingError, "structpack.Pack requires a struct or pointer to struct")
	}
	st := rv.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		ft := parseTag(sf.Tag.Get("struct"))
		fv := rv.Field(i)
		if ft.skip {
			continue
		}
		if err := packField(w, fv, ft); err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}
	}
	return nil
}

func packField(w *binio.Writer, fv reflect.Value, ft fieldTag) error {
	switch {
	case ft.hasFstr:
		s := []byte(fv.String())
		if len(s) > ft.fstring {
			return errs.Newf(errs.EncodingError, "fstring value %d bytes exceeds field width %d", len(s), ft.fstring)
		}
		w.WriteBytes(s)
		w.Pad(ft.fstring-len(s), ft.padByte)
		return nil
	case ft.pstring != "":
		s := []byte(fv.String())
		if err := writeLen(w, ft.pstring, uint64(len(s))); err != nil {
			return err
		}
		w.WriteBytes(s)
		return nil
	case ft.hasFvec:
		if fv.Kind() != reflect.Slice || fv.Len() != ft.fvec {
			return errs.Newf(errs.EncodingError, "fvec requires a slice of exactly %d elements, got %d", ft.fvec, fv.Len())
		}
		for i := 0; i < ft.fvec; i++ {
			if err := packField(w, fv.Index(i), fieldTag{}); err != nil {
				return err
			}
		}
		return nil
	default:
		return packNative(w, fv)
	}
}

func packNative(w *binio.Writer, fv reflect.Value) error {
	switch fv.Kind() {
	case reflect.Uint8:
		w.WriteU8(uint8(fv.Uint()))
	case reflect.Uint16:
		w.WriteU16LE(uint16(fv.Uint()))
	case reflect.Uint32:
		w.WriteU32LE(uint32(fv.Uint()))
	case reflect.Uint64:
		w.WriteU64LE(fv.Uint())
	case reflect.Int16:
		w.WriteU16LE(uint16(int16(fv.Int())))
	case reflect.Int32:
		w.WriteU32LE(uint32(int32(fv.Int())))
	default:
		return errs.Newf(errs.EncodingError, "unsupported field kind %s", fv.Kind())
	}
	return nil
}

func writeLen(w *binio.Writer, width string, n uint64) error {
	switch width {
	case "u8":
		w.WriteU8(uint8(n))
	case "u16":
		w.WriteU16LE(uint16(n))
	case "u32":
		w.WriteU32LE(uint32(n))
	case "u64":
		w.WriteU64LE(n)
	default:
		return errs.Newf(errs.EncodingError, "unknown pstring length type %q", width)
	}
	return nil
}
