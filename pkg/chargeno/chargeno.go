package chargeno

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator produce números de charge únicos y ordenables en el tiempo,
// basados en IDs snowflake. El número resultante tiene la forma "CH-<id base36>".
type Generator struct {
	node *snowflake.Node
}

// New crea un generador para el nodo indicado (0-1023). Cada instancia de la
// API debe usar un nodeID distinto para garantizar unicidad entre réplicas.
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("crear nodo snowflake: %w", err)
	}
	return &Generator{node: node}, nil
}

// Next devuelve el siguiente número de charge.
func (g *Generator) Next() string {
	return "CH-" + g.node.Generate().Base36()
}
