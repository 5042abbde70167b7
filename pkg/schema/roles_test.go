package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRole(t *testing.T) {
	tests := []struct {
		name     string
		column   string
		dataType string
		isPK     bool
		expected Role
	}{
		// Identifier rule pre-empts everything, including monetary names.
		{"id prefix beats monetary type", "id_venta", "decimal", false, RoleIdentifier},
		{"primary key flag alone", "whatever", "varchar", true, RoleIdentifier},
		{"codigo token", "codigo_producto", "varchar", false, RoleIdentifier},

		{"fecha name", "fecha_venta", "varchar", false, RoleDate},
		{"date type", "created", "datetime", false, RoleDate},
		{"year column", "año", "int", false, RoleDate},

		{"monetary needs decimal kind", "venta_neta", "decimal", false, RoleMetricMonetary},
		{"monetary name with int type is not monetary", "total_x", "int", false, RoleUnknown},
		{"price double", "precio_unitario", "double", false, RoleMetricMonetary},

		{"quantity int", "cantidad_cajas", "int", false, RoleMetricQuantity},
		{"units decimal", "unidades", "decimal", false, RoleMetricQuantity},

		{"category producto", "nombre_producto2", "varchar", false, RoleCategory},
		{"category marca", "marca", "varchar", false, RoleCategory},

		{"coordinate", "latitud", "double", false, RoleCoordinate},

		{"plain varchar is label", "observaciones", "varchar", false, RoleLabel},
		{"plain text is label", "descripcion_larga", "text", false, RoleLabel},

		{"nothing matches", "x1", "bigint", false, RoleUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyRole(tt.column, tt.dataType, tt.isPK)
			assert.Equal(t, tt.expected, got)

			// Classification is pure: a second call yields the same role.
			assert.Equal(t, got, ClassifyRole(tt.column, tt.dataType, tt.isPK))
		})
	}
}

func TestRoleRulesOrder(t *testing.T) {
	// The rule order is part of the contract; a reordering is a behavior
	// change even if every predicate is untouched.
	expected := []Role{
		RoleIdentifier,
		RoleDate,
		RoleMetricMonetary,
		RoleMetricQuantity,
		RoleCategory,
		RoleCoordinate,
		RoleLabel,
	}
	var got []Role
	for _, rule := range RoleRules {
		got = append(got, rule.Role)
	}
	assert.Equal(t, expected, got)
}

func TestSuggestAggregation(t *testing.T) {
	assert.Equal(t, "SUM", SuggestAggregation(RoleMetricMonetary))
	assert.Equal(t, "SUM", SuggestAggregation(RoleMetricQuantity))
	assert.Equal(t, "GROUP BY", SuggestAggregation(RoleCategory))
	assert.Equal(t, "GROUP BY", SuggestAggregation(RoleLabel))
	assert.Equal(t, "WHERE", SuggestAggregation(RoleDate))
	assert.Equal(t, "WHERE", SuggestAggregation(RoleIdentifier))
	assert.Equal(t, "", SuggestAggregation(RoleUnknown))
	assert.Equal(t, "", SuggestAggregation(RoleCoordinate))
}
