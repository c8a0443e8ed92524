package scene

import "errors"

// ErrNoGeometry is returned by sources that cannot produce any mesh.
var ErrNoGeometry = errors.New("scene has no geometry")

// Query is the read-only view the exporter consumes. Lists come back in
// scene order; the exporter applies its own sorting.
type Query interface {
	// Root returns model metadata or nil when the scene has no model root.
	Root() (*Root, error)
	// Armature returns the skeleton or nil when the model has none.
	Armature() (*Armature, error)
	Meshes() ([]*Mesh, error)
	Materials() ([]*Material, error)
	Morphs(kind MorphKind) ([]*Morph, error)
	DisplayFrames() ([]*DisplayFrame, error)
	// FacialDisplayOrder returns the morph entries of the facial frame,
	// or nil when there is none.
	FacialDisplayOrder() ([]MorphRef, error)
	RigidBodies() ([]*RigidBody, error)
	Joints() ([]*Joint, error)
}

// Static is an in-memory Query.
type Static struct {
	RootInfo   *Root
	Skeleton   *Armature
	MeshList   []*Mesh
	Mats       []*Material
	MorphDefs  []*Morph
	Frames     []*DisplayFrame
	Rigids     []*RigidBody
	JointList  []*Joint
	FacialRefs []MorphRef // overrides the facial frame when set
}

var _ Query = (*Static)(nil)

func (s *Static) Root() (*Root, error) { return s.RootInfo, nil }
func (s *Static) Armature() (*Armature, error) { return s.Skeleton, nil }
func (s *Static) Meshes() ([]*Mesh, error) { return s.MeshList, nil }
func (s *Static) Materials() ([]*Material, error) { return s.Mats, nil }
func (s *Static) RigidBodies() ([]*RigidBody, error) { return s.Rigids, nil }
func (s *Static) Joints() ([]*Joint, error) { return s.JointList, nil }

func (s *Static) DisplayFrames() ([]*DisplayFrame, error) { return s.Frames, nil }

// Morphs filters the definitions by kind, keeping their order.
func (s *Static) Morphs(kind MorphKind) ([]*Morph, error) {
	var out []*Morph
	for _, m := range s.MorphDefs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out, nil
}

// FacialDisplayOrder returns FacialRefs or the morph items of the facial
// frame.
func (s *Static) FacialDisplayOrder() ([]MorphRef, error) {
	if s.FacialRefs != nil {
		return s.FacialRefs, nil
	}
	return FacialOrder(s.Frames), nil
}

// FacialOrder collects the morph items of the first frame named "表情".
func FacialOrder(frames []*DisplayFrame) []MorphRef {
	for _, f := range frames {
		if f.Name != FacialFrameName {
			continue
		}
		var refs []MorphRef
		for _, it := range f.Items {
			if it.Morph {
				refs = append(refs, MorphRef{Kind: it.MorphKind, Name: it.Name})
			}
		}
		return refs
	}
	return nil
}
