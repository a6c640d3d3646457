package freewili

import (
	"path"
	"path/filepath"
	"strings"
)

// FileRoute maps a file extension to the processor that owns files of that
// type and the directory they are stored under on the device.
type FileRoute struct {
	Extension   string        // normalized extension, without the leading dot
	Role        ProcessorRole // processor the file should live on
	Directory   string        // directory for the file type on the device
	Description string        // human readable description of the file type
}

var fileRoutes = map[string]FileRoute{
	"wasm": {"wasm", RoleMain, "/scripts", "WASM binary"},
	"wsm":  {"wsm", RoleMain, "/scripts", "WASM binary"},
	"sub":  {"sub", RoleDisplay, "/radio", "Radio file"},
	"fwi":  {"fwi", RoleDisplay, "/images", "Image file"},
}

// RouteExtension looks up the route for a file extension. The lookup is case
// insensitive and tolerates a leading dot. It returns an
// UnknownExtensionError for extensions with no route.
func RouteExtension(ext string) (FileRoute, error) {
	ext = strings.ToLower(strings.TrimLeft(ext, "."))
	route, ok := fileRoutes[ext]
	if !ok {
		return FileRoute{}, &UnknownExtensionError{Ext: ext}
	}
	return route, nil
}

// RouteFile looks up the route for a file name, which may contain a path.
func RouteFile(name string) (FileRoute, error) {
	return RouteExtension(filepath.Ext(name))
}

// TargetPath builds the on-device path for a file of this type: the route's
// directory joined with the file's base name. Device paths always use forward
// slashes regardless of the host platform.
func (r FileRoute) TargetPath(name string) string {
	return path.Join(r.Directory, filepath.Base(name))
}
