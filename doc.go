// Package swarmtune searches for convolutional-network architectures and
// training hyperparameters with a two-level particle swarm, after:
//
//	"Hybrid MPSO-CNN: Multi-level Particle Swarm optimized
//	hyperparameters of Convolutional Neural Network", Swarm and
//	Evolutionary Computation, 2021.  doi:10.1016/j.swevo.2021.100863
//
// Level-1 particles carry a network topology (layer counts) and each
// level-1 particle owns a level-2 swarm whose particles carry the
// per-layer numeric hyperparameters under that topology.  Building,
// training, and scoring a candidate network is delegated to an external
// Evaluator; this module only runs the search.
//
// The root package holds the domain types, the Evaluator collaborator
// interface, and evaluation strategies (serial, cached, bounded
// parallel).  Package space describes the valid hyperparameter region
// and repairs positions into it, and package swarm runs the two coupled
// optimization loops.
package swarmtune
