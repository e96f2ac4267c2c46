package repository

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/cloo-solutions/plotsearch/internal/service"
)

var columns = map[filter.Field]string{
	filter.FieldStatus:       "p.status",
	filter.FieldCategory:     "p.category",
	filter.FieldOwner:        "p.owner_id",
	filter.FieldLocation:     "p.location_id",
	filter.FieldPrice:        "p.price",
	filter.FieldArea:         "p.area",
	filter.FieldPricePerArea: "(p.price / NULLIF(p.area, 0))",
	filter.FieldRooms:        "p.rooms",
	filter.FieldBathrooms:    "p.bathrooms",
	filter.FieldFloor:        "p.floor",
	filter.FieldBuildYear:    "p.build_year",
	filter.FieldElectricity:  "p.electricity",
	filter.FieldWater:        "p.water",
	filter.FieldGas:          "p.gas",
	filter.FieldRoadAccess:   "p.road_access",
	filter.FieldSewerage:     "p.sewerage",
	filter.FieldFurnished:    "p.furnished",
	filter.FieldTitle:        "p.title",
	filter.FieldDescription:  "p.description",
	filter.FieldAddress:      "p.address",
}

var sortColumns = map[domain.SortKey]string{
	domain.SortByPrice:     "p.price",
	domain.SortByCreatedAt: "p.created_at",
	domain.SortByUpdatedAt: "p.updated_at",
	domain.SortByTitle:     "p.title",
	domain.SortByArea:      "p.area",
	domain.SortByRooms:     "p.rooms",
	domain.SortByBuildYear: "p.build_year",
}

// sqlBuilder accumulates WHERE conditions with positional arguments.
type sqlBuilder struct {
	conditions []string
	args       []any
	argID      int
	geography  bool
}

func newSQLBuilder(geography bool) *sqlBuilder {
	return &sqlBuilder{argID: 1, geography: geography}
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	ph := fmt.Sprintf("$%d", b.argID)
	b.argID++
	return ph
}

// addTree translates the store-pushable predicates of tree. Post-filters
// are left to the caller.
func (b *sqlBuilder) addTree(tree *filter.Tree) error {
	for _, pred := range tree.Predicates {
		cond, err := b.condition(pred)
		if err != nil {
			return err
		}
		b.conditions = append(b.conditions, cond)
	}
	return nil
}

func (b *sqlBuilder) where() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

func (b *sqlBuilder) column(f filter.Field) (string, error) {
	col, ok := columns[f]
	if !ok {
		return "", fmt.Errorf("no column for field %q", f)
	}
	return col, nil
}

func (b *sqlBuilder) condition(pred filter.Predicate) (string, error) {
	switch p := pred.(type) {
	case filter.Range:
		col, err := b.column(p.Field)
		if err != nil {
			return "", err
		}
		var parts []string
		if p.Min != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", col, b.arg(*p.Min)))
		}
		if p.Max != nil {
			parts = append(parts, fmt.Sprintf("%s <= %s", col, b.arg(*p.Max)))
		}
		if len(parts) == 0 {
			return fmt.Sprintf("%s IS NOT NULL", col), nil
		}
		return strings.Join(parts, " AND "), nil

	case filter.Equals:
		col, err := b.column(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", col, b.arg(p.Value)), nil

	case filter.BooleanFlag:
		col, err := b.column(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", col, b.arg(p.Expected)), nil

	case filter.SetMembership:
		return b.setCondition(p)

	case filter.GeoRadius:
		return b.radiusCondition(p), nil

	case filter.GeoBox:
		return b.boxCondition(p.Box), nil

	case filter.TextSearch:
		pattern := b.arg("%" + escapeLike(p.Term) + "%")
		parts := make([]string, 0, len(p.Fields))
		for _, f := range p.Fields {
			col, err := b.column(f)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s ILIKE %s", col, pattern))
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil

	case filter.Conjunction:
		if len(p.Predicates) == 0 {
			return "TRUE", nil
		}
		parts := make([]string, 0, len(p.Predicates))
		for _, child := range p.Predicates {
			cond, err := b.condition(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, cond)
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	}
	return "", fmt.Errorf("unsupported predicate %T", pred)
}

func (b *sqlBuilder) setCondition(s filter.SetMembership) (string, error) {
	if s.Field != filter.FieldFeatures {
		col, err := b.column(s.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = ANY(%s)", col, b.arg(s.Values)), nil
	}

	if s.Mode == domain.FeatureModeAll && len(s.Values) > 1 {
		ids := b.arg(s.Values)
		return fmt.Sprintf(
			"(SELECT COUNT(DISTINCT pf.feature_id) FROM property_features pf WHERE pf.property_id = p.id AND pf.feature_id = ANY(%s)) = %s",
			ids, b.arg(len(s.Values))), nil
	}
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM property_features pf WHERE pf.property_id = p.id AND pf.feature_id = ANY(%s))",
		b.arg(s.Values)), nil
}

func (b *sqlBuilder) radiusCondition(r filter.GeoRadius) string {
	if b.geography {
		return b.geographyWithin(r.Center, r.RadiusKm)
	}
	// box first so the lat/lng index narrows the haversine scan
	box := b.boxCondition(geo.BoxAround(r.Center, r.RadiusKm))
	return fmt.Sprintf("%s AND %s <= %s", box, b.haversine(r.Center), b.arg(r.RadiusKm))
}

// geographyWithin uses the GiST index on p.geog to narrow candidates, then
// applies the same haversine bound as the fallback. PostGIS measures on a
// slightly smaller sphere, so the index step never drops a haversine match.
func (b *sqlBuilder) geographyWithin(center geo.Point, radiusKm float64) string {
	return fmt.Sprintf("ST_DWithin(p.geog, %s, %s, false) AND %s <= %s",
		b.geographyPoint(center), b.arg(radiusKm*1000), b.haversine(center), b.arg(radiusKm))
}

func (b *sqlBuilder) boxCondition(box geo.Box) string {
	lat := fmt.Sprintf("p.lat BETWEEN %s AND %s", b.arg(box.SouthWest.Lat), b.arg(box.NorthEast.Lat))
	if box.CrossesAntimeridian() {
		return fmt.Sprintf("%s AND (p.lng >= %s OR p.lng <= %s)", lat,
			b.arg(box.SouthWest.Lng), b.arg(box.NorthEast.Lng))
	}
	return fmt.Sprintf("%s AND p.lng BETWEEN %s AND %s", lat,
		b.arg(box.SouthWest.Lng), b.arg(box.NorthEast.Lng))
}

func (b *sqlBuilder) haversine(c geo.Point) string {
	lat := b.arg(c.Lat)
	lng := b.arg(c.Lng)
	return fmt.Sprintf(
		"(2 * %g * asin(sqrt(power(sin(radians(p.lat - %s) / 2), 2) + cos(radians(%s)) * cos(radians(p.lat)) * power(sin(radians(p.lng - %s) / 2), 2))))",
		geo.EarthRadiusKm, lat, lat, lng)
}

func (b *sqlBuilder) geographyPoint(c geo.Point) string {
	return fmt.Sprintf("ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography", b.arg(c.Lng), b.arg(c.Lat))
}

// orderBy renders fields with a final id tiebreak so pages never overlap.
func orderBy(fields []service.SortField) (string, error) {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := sortColumns[f.Key]
		if !ok {
			return "", fmt.Errorf("cannot sort by %q", f.Key)
		}
		dir := "DESC"
		if f.Order == domain.SortAsc {
			dir = "ASC"
		}
		parts = append(parts, fmt.Sprintf("%s %s NULLS LAST", col, dir))
	}
	parts = append(parts, "p.id ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
