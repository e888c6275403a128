// Package version reports the build of a dagflow program.
//
// Values are injected at link time and fall back to the VCS stamps the Go
// toolchain embeds:
//
//	go build -ldflags "-X github.com/kbukum/dagflow/version.Version=1.2.0" ./cmd/mapreduce
package version
