package repository

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/filter"
	"github.com/cloo-solutions/plotsearch/internal/geo"
	"github.com/cloo-solutions/plotsearch/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const propertyColumns = `p.id::text, p.title, p.description, p.address, p.price, p.category, p.status, p.owner_id,
	p.area, p.rooms, p.bathrooms, p.floor, p.build_year,
	p.electricity, p.water, p.gas, p.road_access, p.sewerage, p.furnished,
	p.location_id, p.lat, p.lng, p.created_at, p.updated_at`

// PropertyRepository implements service.PropertyStore on PostgreSQL. With
// geography enabled radius queries use PostGIS; otherwise they fall back to
// a lat/lng box plus a haversine expression.
type PropertyRepository struct {
	db        dbtx
	geography bool
}

func NewPropertyRepository(pool *pgxpool.Pool, geography bool) *PropertyRepository {
	return &PropertyRepository{db: pool, geography: geography}
}

func NewPropertyRepositoryWithTx(tx pgx.Tx, geography bool) *PropertyRepository {
	return &PropertyRepository{db: tx, geography: geography}
}

func (r *PropertyRepository) SupportsGeography() bool {
	return r.geography
}

func (r *PropertyRepository) FindMany(ctx context.Context, tree *filter.Tree, sort []service.SortField, skip, take int) ([]*domain.Property, error) {
	b := newSQLBuilder(r.geography)
	if err := b.addTree(tree); err != nil {
		return nil, err
	}
	order, err := orderBy(sort)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + propertyColumns + " FROM properties p" + b.where() + order +
		fmt.Sprintf(" LIMIT %s OFFSET %s", b.arg(take), b.arg(skip))

	rows, err := r.db.Query(ctx, query, b.args...)
	if err != nil {
		return nil, err
	}
	props, err := scanProperties(rows, nil)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, props); err != nil {
		return nil, err
	}
	return props, nil
}

func (r *PropertyRepository) Count(ctx context.Context, tree *filter.Tree) (int, error) {
	b := newSQLBuilder(r.geography)
	if err := b.addTree(tree); err != nil {
		return 0, err
	}
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM properties p"+b.where(), b.args...).Scan(&n)
	return n, err
}

func (r *PropertyRepository) FindWithinRadius(ctx context.Context, tree *filter.Tree, center geo.Point, radiusMeters float64, skip, take int) ([]service.DistanceHit, error) {
	if !r.geography {
		return nil, fmt.Errorf("radius query needs the geography extension")
	}
	b := newSQLBuilder(true)
	// haversine keeps distance_km equal to geo.HaversineKm
	distance := b.haversine(center)
	b.conditions = append(b.conditions, b.geographyWithin(center, radiusMeters/1000))
	if err := b.addTree(tree.Without(filter.KindGeoRadius)); err != nil {
		return nil, err
	}
	query := "SELECT " + propertyColumns + ", " + distance + " AS distance_km FROM properties p" + b.where() +
		" ORDER BY distance_km ASC, p.created_at DESC, p.id ASC" +
		fmt.Sprintf(" LIMIT %s OFFSET %s", b.arg(take), b.arg(skip))

	rows, err := r.db.Query(ctx, query, b.args...)
	if err != nil {
		return nil, err
	}
	var distances []float64
	props, err := scanProperties(rows, &distances)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, props); err != nil {
		return nil, err
	}

	hits := make([]service.DistanceHit, len(props))
	for i, p := range props {
		hits[i] = service.DistanceHit{Property: p, DistanceKm: distances[i]}
	}
	return hits, nil
}

func (r *PropertyRepository) Summarize(ctx context.Context, tree *filter.Tree) (*service.FilterSummary, error) {
	b := newSQLBuilder(r.geography)
	if err := b.addTree(tree); err != nil {
		return nil, err
	}
	where := b.where()

	s := &service.FilterSummary{Categories: map[domain.Category]int{}}
	err := r.db.QueryRow(ctx,
		"SELECT MIN(p.price), MAX(p.price), MIN(p.area), MAX(p.area) FROM properties p"+where,
		b.args...,
	).Scan(&s.MinPrice, &s.MaxPrice, &s.MinArea, &s.MaxArea)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, "SELECT p.category, COUNT(*) FROM properties p"+where+" GROUP BY p.category", b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		s.Categories[domain.Category(cat)] = n
	}
	return s, rows.Err()
}

// Create inserts a listing with its features and images.
func (r *PropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	var lat, lng *float64
	if p.Coordinates != nil {
		lat, lng = &p.Coordinates.Lat, &p.Coordinates.Lng
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO properties (id, title, description, address, price, category, status, owner_id,
			area, rooms, bathrooms, floor, build_year,
			electricity, water, gas, road_access, sewerage, furnished,
			location_id, lat, lng, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		p.ID, p.Title, p.Description, p.Address, p.Price, p.Category, p.Status, p.OwnerID,
		p.Area, p.Rooms, p.Bathrooms, p.Floor, p.BuildYear,
		p.Electricity, p.Water, p.Gas, p.RoadAccess, p.Sewerage, p.Furnished,
		nullableString(p.LocationID), lat, lng, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	for _, f := range p.Features {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO property_features (property_id, feature_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			p.ID, f.ID,
		); err != nil {
			return err
		}
	}
	for i, url := range p.Images {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO property_images (property_id, url, position) VALUES ($1, $2, $3)`,
			p.ID, url, i,
		); err != nil {
			return err
		}
	}
	return nil
}

// hydrate loads features, images and location paths for props in three
// batched queries.
func (r *PropertyRepository) hydrate(ctx context.Context, props []*domain.Property) error {
	if len(props) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Property, len(props))
	ids := make([]string, 0, len(props))
	locIDs := make([]string, 0, len(props))
	for _, p := range props {
		byID[p.ID] = p
		ids = append(ids, p.ID)
		if p.LocationID != "" {
			locIDs = append(locIDs, p.LocationID)
		}
	}

	rows, err := r.db.Query(ctx,
		`SELECT pf.property_id::text, f.id, f.name
		 FROM property_features pf JOIN features f ON f.id = pf.feature_id
		 WHERE pf.property_id::text = ANY($1)
		 ORDER BY f.name`,
		ids,
	)
	if err != nil {
		return err
	}
	for rows.Next() {
		var pid string
		var f domain.Feature
		if err := rows.Scan(&pid, &f.ID, &f.Name); err != nil {
			rows.Close()
			return err
		}
		byID[pid].Features = append(byID[pid].Features, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Query(ctx,
		`SELECT property_id::text, url FROM property_images WHERE property_id::text = ANY($1) ORDER BY position`,
		ids,
	)
	if err != nil {
		return err
	}
	for rows.Next() {
		var pid, url string
		if err := rows.Scan(&pid, &url); err != nil {
			rows.Close()
			return err
		}
		byID[pid].Images = append(byID[pid].Images, url)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(locIDs) == 0 {
		return nil
	}
	paths, err := locationPaths(ctx, r.db, locIDs)
	if err != nil {
		return err
	}
	for _, p := range props {
		p.LocationPath = paths[p.LocationID]
	}
	return nil
}

func scanProperties(rows pgx.Rows, distances *[]float64) ([]*domain.Property, error) {
	defer rows.Close()
	var out []*domain.Property
	for rows.Next() {
		var p domain.Property
		var description, address, locationID *string
		var lat, lng *float64
		dest := []any{
			&p.ID, &p.Title, &description, &address, &p.Price, &p.Category, &p.Status, &p.OwnerID,
			&p.Area, &p.Rooms, &p.Bathrooms, &p.Floor, &p.BuildYear,
			&p.Electricity, &p.Water, &p.Gas, &p.RoadAccess, &p.Sewerage, &p.Furnished,
			&locationID, &lat, &lng, &p.CreatedAt, &p.UpdatedAt,
		}
		var d float64
		if distances != nil {
			dest = append(dest, &d)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		p.Description = derefString(description)
		p.Address = derefString(address)
		p.LocationID = derefString(locationID)
		if lat != nil && lng != nil {
			p.Coordinates = &geo.Point{Lat: *lat, Lng: *lng}
		}
		if distances != nil {
			*distances = append(*distances, d)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
