package common

type Module string

const (
	ModuleTier Module = "tier"
	ModuleIDO  Module = "ido"
)

func (m Module) String() string {
	return string(m)
}
