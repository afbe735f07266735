package stacktrace

import (
	"reflect"
	"testing"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 1 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/otpgate/internal/pkg/router.middlewareRecoverer.func1.1()
	/app/internal/pkg/router/middleware_recover.go:25 +0x3c
panic({0x1, 0x2})
	/usr/local/go/src/runtime/panic.go:785 +0x132
github.com/shandysiswandi/otpgate/internal/identity/inbound.(*Endpoint).Me(...)
	/app/internal/identity/inbound/http_endpoint.go:88 +0x10
`)

	got := InternalPaths(stack)

	want := []string{
		"internal/pkg/router/middleware_recover.go:25",
		"internal/identity/inbound/http_endpoint.go:88",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("InternalPaths() = %v, want %v", got, want)
	}
}

func TestInternalPaths_None(t *testing.T) {
	if got := InternalPaths([]byte("goroutine 1 [running]:\nmain.main()\n\t/app/main.go:10\n")); len(got) != 0 {
		t.Fatalf("InternalPaths() = %v, want empty", got)
	}
}
