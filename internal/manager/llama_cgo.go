//go:build llama

package manager

// Link against libllama from ./bin and resolve it next to the binary at run
// time ($ORIGIN), so `-tags=llama` builds need no LD_LIBRARY_PATH.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
