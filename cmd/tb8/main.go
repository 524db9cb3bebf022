// Package main is the entry point for tb8.
//
//	@title			tb8 - TfL API gateway
//	@version		1.0
//	@description	Read-only gateway over the TfL Unified API. Every response is wrapped in an envelope with request timing and an echoed query.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:4000
//	@BasePath		/
package main

func main() {
	Execute()
}
