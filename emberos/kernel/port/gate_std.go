//go:build !(tinygo && baremetal)

package port

type hwState struct{}

func maskHW() hwState { return hwState{} }

func unmaskHW(hwState) {}
