package formula

// Formula represents the structure of a formula file.
type Formula struct {
	Name        string       `yaml:"name" toml:"name" validate:"required,pkgname"`
	Description string       `yaml:"description" toml:"description"`
	Versions    []VersionDTO `yaml:"versions" toml:"versions" validate:"required,min=1,dive"`
}

// VersionDTO represents one published version in a formula.
type VersionDTO struct {
	Version      string   `yaml:"version" toml:"version" validate:"required,pkgversion"`
	URL          string   `yaml:"url" toml:"url" validate:"required"`
	Hash         string   `yaml:"hash" toml:"hash" validate:"required,digest"`
	Dependencies []string `yaml:"dependencies" toml:"dependencies" validate:"dive,required"`
	Optional     []string `yaml:"optional" toml:"optional" validate:"dive,required"`
}
