// ABOUTME: Version constants for the library and its tools
// ABOUTME: Bumped on release; tools print String in their banner
package version

const (
	// Product is the short project name tools identify themselves with.
	Product = "pcmio-go"

	// Version is the semantic version of this build.
	Version = "0.1.0"
)

// String returns "Product Version" for banners and logs.
func String() string {
	return Product + " " + Version
}
