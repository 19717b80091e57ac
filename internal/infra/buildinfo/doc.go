// Package buildinfo exposes version information injected at build time:
//
//	go build -ldflags "-X github.com/yndnr/jobdesk-go/internal/infra/buildinfo.Version=v1.2.0 \
//	  -X github.com/yndnr/jobdesk-go/internal/infra/buildinfo.Commit=abc123"
//
// Values not set by ldflags fall back to what the Go toolchain embedded in
// the binary.
package buildinfo
