package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/geo"
)

// MaxRadiusKm bounds radius filters and radius searches.
const MaxRadiusKm = 100.0

// LocationResolver is the part of the location store the compiler needs to
// expand a district or region into everything beneath it.
type LocationResolver interface {
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	GetDescendants(ctx context.Context, id string) ([]*domain.Location, error)
}

// Scope carries who is searching. Only a privileged scope may override the
// base status; OwnerID restricts results to one owner's inventory.
type Scope struct {
	BaseStatus domain.ListingStatus
	Privileged bool
	OwnerID    string
}

// PublicScope is the scope of anonymous marketplace searches.
func PublicScope() Scope {
	return Scope{BaseStatus: domain.ListingStatusPublished}
}

// OwnerScope lets an owner list their own inventory in any status.
func OwnerScope(ownerID string) Scope {
	return Scope{BaseStatus: domain.ListingStatusPublished, Privileged: true, OwnerID: ownerID}
}

// Compiler builds predicate trees from criteria.
type Compiler struct {
	locations LocationResolver
}

func NewCompiler(locations LocationResolver) *Compiler {
	return &Compiler{locations: locations}
}

// Compile turns criteria into a predicate tree. Predicates are ordered
// status, category, owner, location, ranges, flags, features, geo, text;
// the price-per-area range goes to PostFilters. Inverted ranges are dropped
// and reported in Warnings. Conflicting or malformed geo filters fail before
// any store is touched.
func (c *Compiler) Compile(ctx context.Context, criteria domain.SearchCriteria, scope Scope) (*Tree, error) {
	if err := ValidateGeoFilter(criteria.Geo); err != nil {
		return nil, err
	}
	if criteria.Category != "" && !criteria.Category.Valid() {
		return nil, domain.NewValidationError("category", fmt.Sprintf("unknown category %q", criteria.Category))
	}
	if criteria.Status != "" && !criteria.Status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", criteria.Status))
	}
	mode := criteria.FeatureMode
	if mode == "" {
		mode = domain.FeatureModeAll
	}
	if mode != domain.FeatureModeAll && mode != domain.FeatureModeAny {
		return nil, domain.NewValidationError("featureMode", "must be ALL or ANY")
	}

	tree := &Tree{}

	status := scope.BaseStatus
	if status == "" {
		status = domain.ListingStatusPublished
	}
	if criteria.Status != "" && criteria.Status != status {
		if scope.Privileged {
			status = criteria.Status
		} else {
			tree.Warnings = append(tree.Warnings, Warning{Field: "status", Message: "status override ignored for this caller"})
		}
	}
	tree.Predicates = append(tree.Predicates, Equals{Field: FieldStatus, Value: string(status)})

	if criteria.Category != "" {
		tree.Predicates = append(tree.Predicates, Equals{Field: FieldCategory, Value: string(criteria.Category)})
	}
	if scope.OwnerID != "" {
		tree.Predicates = append(tree.Predicates, Equals{Field: FieldOwner, Value: scope.OwnerID})
	}

	loc, err := c.locationPredicate(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if loc != nil {
		tree.Predicates = append(tree.Predicates, loc)
	}

	tree.addRange(FieldPrice, criteria.Price.Min, criteria.Price.Max)
	tree.addRange(FieldArea, criteria.Area.Min, criteria.Area.Max)
	tree.addIntRange(FieldRooms, criteria.Rooms)
	tree.addIntRange(FieldBathrooms, criteria.Bathrooms)
	tree.addIntRange(FieldFloor, criteria.Floor)
	tree.addIntRange(FieldBuildYear, criteria.BuildYear)

	a := criteria.Amenities
	tree.addFlag(FieldElectricity, a.Electricity)
	tree.addFlag(FieldWater, a.Water)
	tree.addFlag(FieldGas, a.Gas)
	tree.addFlag(FieldRoadAccess, a.RoadAccess)
	tree.addFlag(FieldSewerage, a.Sewerage)
	tree.addFlag(FieldFurnished, a.Furnished)

	if ids := NormalizeIDs(criteria.FeatureIDs); len(ids) > 0 {
		if mode == domain.FeatureModeAny {
			tree.Predicates = append(tree.Predicates, SetMembership{Field: FieldFeatures, Values: ids, Mode: domain.FeatureModeAny})
		} else {
			// one check per feature: the listing may carry extra features
			checks := make([]Predicate, len(ids))
			for i, id := range ids {
				checks[i] = SetMembership{Field: FieldFeatures, Values: []string{id}, Mode: domain.FeatureModeAll}
			}
			tree.Predicates = append(tree.Predicates, Conjunction{Predicates: checks})
		}
	}

	if g := criteria.Geo; g != nil {
		if g.HasRadius() {
			tree.Predicates = append(tree.Predicates, GeoRadius{Center: *g.Center, RadiusKm: g.RadiusKm})
		} else if g.HasBox() {
			tree.Predicates = append(tree.Predicates, GeoBox{Box: geo.Box{NorthEast: *g.NorthEast, SouthWest: *g.SouthWest}})
		}
	}

	if term := strings.TrimSpace(criteria.Term); term != "" {
		tree.Predicates = append(tree.Predicates, TextSearch{Term: term, Fields: TextFields})
	}

	ppa := criteria.PricePerArea
	if ppa.Inverted() {
		tree.warnInverted(FieldPricePerArea)
	} else {
		if ppa.Min != nil {
			tree.PostFilters = append(tree.PostFilters, Range{Field: FieldPricePerArea, Min: ppa.Min})
		}
		if ppa.Max != nil {
			tree.PostFilters = append(tree.PostFilters, Range{Field: FieldPricePerArea, Max: ppa.Max})
		}
	}

	return tree, nil
}

func (c *Compiler) locationPredicate(ctx context.Context, criteria domain.SearchCriteria) (Predicate, error) {
	id, level, ok := criteria.LocationRef()
	if !ok {
		return nil, nil
	}
	if level == domain.LocationLevelSubDistrict {
		return Equals{Field: FieldLocation, Value: id}, nil
	}
	if c.locations == nil {
		return nil, domain.NewInfrastructureError("resolve location "+id, fmt.Errorf("no location store configured"))
	}

	if _, err := c.locations.GetByID(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, domain.NewInfrastructureError("get location "+id, err)
	}
	descendants, err := c.locations.GetDescendants(ctx, id)
	if err != nil {
		return nil, domain.NewInfrastructureError("get descendants of location "+id, err)
	}

	values := make([]string, 0, len(descendants)+1)
	values = append(values, id)
	for _, d := range descendants {
		values = append(values, d.ID)
	}
	return SetMembership{Field: FieldLocation, Values: values, Mode: domain.FeatureModeAny}, nil
}

func (t *Tree) addRange(field Field, min, max *float64) {
	if min != nil && max != nil && *min > *max {
		t.warnInverted(field)
		return
	}
	if min != nil {
		t.Predicates = append(t.Predicates, Range{Field: field, Min: min})
	}
	if max != nil {
		t.Predicates = append(t.Predicates, Range{Field: field, Max: max})
	}
}

func (t *Tree) addIntRange(field Field, r domain.Range[int]) {
	t.addRange(field, toFloat(r.Min), toFloat(r.Max))
}

func (t *Tree) addFlag(field Field, v *bool) {
	if v != nil {
		t.Predicates = append(t.Predicates, BooleanFlag{Field: field, Expected: *v})
	}
}

func (t *Tree) warnInverted(field Field) {
	t.Warnings = append(t.Warnings, Warning{Field: string(field), Message: "min is greater than max; range ignored"})
}

func toFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

// ValidateGeoFilter checks shape, coordinates and radius of a geo filter.
func ValidateGeoFilter(g *domain.GeoFilter) error {
	if g == nil {
		return nil
	}
	if g.HasRadius() && g.HasBox() {
		return domain.ErrConflictingGeoFilters
	}
	if g.HasRadius() {
		if g.Center == nil {
			return domain.NewValidationError("center", "center is required with radiusKm")
		}
		return ValidateRadius(*g.Center, g.RadiusKm)
	}
	if g.HasBox() {
		if g.NorthEast == nil || g.SouthWest == nil {
			return domain.NewValidationError("bbox", "both northEast and southWest are required")
		}
		return ValidateBox(geo.Box{NorthEast: *g.NorthEast, SouthWest: *g.SouthWest})
	}
	return nil
}

// ValidateRadius requires a legal center and 0 < radiusKm <= MaxRadiusKm.
func ValidateRadius(center geo.Point, radiusKm float64) error {
	if err := ValidatePoint("center", center); err != nil {
		return err
	}
	if !(radiusKm > 0 && radiusKm <= MaxRadiusKm) {
		return domain.NewValidationError("radiusKm", fmt.Sprintf("must be in (0, %g]", MaxRadiusKm))
	}
	return nil
}

// ValidateBox requires legal corners with north-east strictly north and east
// of south-west.
func ValidateBox(b geo.Box) error {
	if err := ValidatePoint("northEast", b.NorthEast); err != nil {
		return err
	}
	if err := ValidatePoint("southWest", b.SouthWest); err != nil {
		return err
	}
	if b.Degenerate() {
		return domain.ErrDegenerateBox
	}
	return nil
}

// ValidatePoint checks lat in [-90, 90] and lng in [-180, 180].
func ValidatePoint(field string, p geo.Point) error {
	if !p.Valid() {
		return domain.NewValidationError(field, "latitude must be in [-90, 90] and longitude in [-180, 180]")
	}
	return nil
}

// NormalizeIDs trims ids and drops blanks and duplicates, keeping order.
func NormalizeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
