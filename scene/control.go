package scene

// Control augments a node with behaviour. The node calls OnNodeBound when
// the control is added and OnNodeUnbound when it is removed.
type Control interface {
	OnNodeBound(n *Node) error
	OnNodeUnbound()
	OnUpdate(dt float64)
	OnRender(r Renderer)
}

// Renderer draws nodes. Implementations decide how meshes are presented.
type Renderer interface {
	Draw(n *Node)
}
