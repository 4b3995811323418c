package main

//go:generate go fmt ./...
//go:generate go run -mod=mod ./tools/build_locales
//go:generate go run -mod=mod ./tools/check_translations -code -path .
