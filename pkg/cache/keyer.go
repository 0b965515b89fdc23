package cache

// Keyer builds cache keys. Implementations must be deterministic: equal
// inputs yield equal keys.
type Keyer interface {
	// LayoutKey identifies a layout computed from a catalog version.
	LayoutKey(catalogHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered artifact of a scene.
	ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the layout options that change the result.
type LayoutKeyOpts struct {
	HorizontalGap float64 `json:"hgap"`
	VerticalGap   float64 `json:"vgap"`
	Fallback      string  `json:"fallback"`
}

// ArtifactKeyOpts holds the render options that change the artifact bytes.
type ArtifactKeyOpts struct {
	Format   string  `json:"format"`
	Detailed bool    `json:"detailed,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
}

// DefaultKeyer produces unprefixed keys of the form "kind:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey hashes the catalog hash together with the options.
func (DefaultKeyer) LayoutKey(catalogHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", catalogHash, opts)
}

// ArtifactKey hashes the scene hash together with the options.
func (DefaultKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", sceneHash, opts)
}
