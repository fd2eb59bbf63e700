package services

import (
	"context"
	"testing"

	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/ports"
)

type stopEnv struct {
	stops    *fakeStopRepo
	routes   *fakeRouteRepo
	geocoder *fakeGeocoder
	events   *fakeEvents
	svc      *StopService
}

func newStopEnv() *stopEnv {
	stops := newFakeStopRepo()
	routes := newFakeRouteRepo(stops)
	geocoder := newFakeGeocoder()
	events := &fakeEvents{}
	return &stopEnv{
		stops:    stops,
		routes:   routes,
		geocoder: geocoder,
		events:   events,
		svc:      NewStopService(stops, routes, geocoder, events),
	}
}

func TestCreateStopFillsCatalogDefaults(t *testing.T) {
	env := newStopEnv()
	env.geocoder.results["12 Oak Ave"] = ports.GeocodeResult{
		Coord:            domain.Coordinates{Lon: -112.1, Lat: 33.5},
		FormattedAddress: "12 Oak Ave, Phoenix, AZ",
	}

	stop, err := env.svc.Create(context.Background(), CreateStopRequest{
		ScheduledDate: testDate,
		CustomerName:  "Dana Reyes",
		Address:       "12 Oak Ave",
		Category:      "pharmacy",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stop.Priority != domain.PriorityUrgent {
		t.Errorf("priority = %d, want urgent from catalog", stop.Priority)
	}
	if stop.Size != domain.SizeSmall {
		t.Errorf("size = %q, want small from catalog", stop.Size)
	}
	if stop.Product != "Pharmacy order" {
		t.Errorf("product = %q, want catalog description", stop.Product)
	}
	if stop.Address != "12 Oak Ave, Phoenix, AZ" {
		t.Errorf("address = %q, want formatted address", stop.Address)
	}
	if stop.Coord.Lat != 33.5 {
		t.Errorf("lat = %f, want 33.5", stop.Coord.Lat)
	}
	if stop.Status != domain.StopPending {
		t.Errorf("status = %s, want pending", stop.Status)
	}
	if stop.ID == "" || stop.Seq == 0 {
		t.Error("id and seq must be assigned")
	}
}

func TestCreateStopExplicitFieldsWin(t *testing.T) {
	env := newStopEnv()
	routine := int(domain.PriorityRoutine)

	stop, err := env.svc.Create(context.Background(), CreateStopRequest{
		ScheduledDate: testDate,
		CustomerName:  "Sam Ortiz",
		Address:       "9 Pine Rd",
		Category:      "pharmacy",
		Priority:      &routine,
		Size:          "large",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stop.Priority != domain.PriorityRoutine {
		t.Errorf("priority = %d, explicit value must override catalog", stop.Priority)
	}
	if stop.Size != domain.SizeLarge {
		t.Errorf("size = %q, explicit value must override catalog", stop.Size)
	}
}

func TestCreateStopValidation(t *testing.T) {
	env := newStopEnv()

	cases := []struct {
		name string
		req  CreateStopRequest
	}{
		{"bad date", CreateStopRequest{ScheduledDate: "someday", CustomerName: "x", Address: "y"}},
		{"missing customer", CreateStopRequest{ScheduledDate: testDate, Address: "y"}},
		{"missing address", CreateStopRequest{ScheduledDate: testDate, CustomerName: "x"}},
		{"bad kind", CreateStopRequest{ScheduledDate: testDate, CustomerName: "x", Address: "y", Kind: "detour"}},
	}
	for _, tc := range cases {
		_, err := env.svc.Create(context.Background(), tc.req)
		if domain.KindOf(err) != domain.KindValidation {
			t.Errorf("%s: kind = %v, want validation", tc.name, domain.KindOf(err))
		}
	}

	_, err := env.svc.Create(context.Background(), CreateStopRequest{
		ScheduledDate: testDate, CustomerName: "x", Address: "y", Category: "livestock",
	})
	if domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("unknown category: kind = %v, want not found", domain.KindOf(err))
	}
}

func TestUpdateKeepsCoordinatesWhenAddressUnchanged(t *testing.T) {
	env := newStopEnv()
	env.geocoder.results["7 Birch Ln"] = ports.GeocodeResult{
		Coord:            domain.Coordinates{Lon: -111.9, Lat: 33.4},
		FormattedAddress: "7 Birch Ln",
	}

	stop, err := env.svc.Create(context.Background(), CreateStopRequest{
		ScheduledDate: testDate,
		CustomerName:  "Lee Chan",
		Address:       "7 Birch Ln",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A same-address update never re-geocodes, so a broken geocoder
	// cannot fail it.
	env.geocoder.errs["7 Birch Ln"] = domain.CollaboratorErr("geocoding unavailable", nil)
	geocodes := env.geocoder.calls

	updated, err := env.svc.Update(context.Background(), stop.ID, CreateStopRequest{
		ScheduledDate: testDate,
		CustomerName:  "Lee Chan-Smith",
		Address:       "7 Birch Ln",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if env.geocoder.calls != geocodes {
		t.Errorf("geocoder called %d times on same-address update, want %d", env.geocoder.calls, geocodes)
	}
	if updated.CustomerName != "Lee Chan-Smith" {
		t.Errorf("customer = %q", updated.CustomerName)
	}
	if updated.Coord != stop.Coord {
		t.Errorf("coordinates changed on same-address update")
	}
	if updated.Seq != stop.Seq || updated.Status != stop.Status {
		t.Error("seq and status must survive an update")
	}
}

func TestUpdateRegeocodesChangedAddress(t *testing.T) {
	env := newStopEnv()
	env.geocoder.results["9 Cedar Ave"] = ports.GeocodeResult{
		Coord:            domain.Coordinates{Lon: -112.1, Lat: 33.5},
		FormattedAddress: "9 Cedar Ave",
	}

	stop, err := env.svc.Create(context.Background(), CreateStopRequest{
		ScheduledDate: testDate,
		CustomerName:  "Lee Chan",
		Address:       "7 Birch Ln",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := env.svc.Update(context.Background(), stop.ID, CreateStopRequest{
		ScheduledDate: testDate,
		CustomerName:  "Lee Chan",
		Address:       "9 Cedar Ave",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if env.geocoder.calls != 2 {
		t.Errorf("geocoder called %d times, want 2", env.geocoder.calls)
	}
	want := domain.Coordinates{Lon: -112.1, Lat: 33.5}
	if updated.Coord != want {
		t.Errorf("coordinates = %+v, want %+v", updated.Coord, want)
	}
}

func TestCompleteStopIsIdempotentAndNotifies(t *testing.T) {
	env := newStopEnv()
	stop := &domain.DeliveryStop{
		ID:            "s1",
		ScheduledDate: testDate,
		CustomerName:  "Ana Silva",
		Status:        domain.StopInTransit,
	}
	env.stops.Create(context.Background(), stop)

	done, err := env.svc.Complete(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != domain.StopDelivered {
		t.Fatalf("status = %s, want delivered", done.Status)
	}

	// Completing again stays delivered.
	if _, err := env.svc.Complete(context.Background(), "s1"); err != nil {
		t.Fatalf("second complete: %v", err)
	}

	notifs, _ := env.stops.NotificationsByStop(context.Background(), "s1")
	if len(notifs) != 2 || notifs[0].Type != domain.NotifyDelivered {
		t.Fatalf("notifications = %v", notifs)
	}

	completed := env.events.byType(ports.EventDeliveryCompleted)
	if len(completed) == 0 {
		t.Fatal("no delivery_completed event emitted")
	}
	if completed[0].topic != ports.RouteTopic(testDate) {
		t.Errorf("event topic = %q, want %q", completed[0].topic, ports.RouteTopic(testDate))
	}
	if completed[0].event.StopID != "s1" {
		t.Errorf("event stop id = %q, want s1", completed[0].event.StopID)
	}
}

func TestClearDate(t *testing.T) {
	env := newStopEnv()
	ctx := context.Background()

	env.routes.GetOrCreate(ctx, testDate)
	env.stops.Create(ctx, &domain.DeliveryStop{ID: "s1", ScheduledDate: testDate})
	env.stops.Create(ctx, &domain.DeliveryStop{ID: "s2", ScheduledDate: testDate})
	env.stops.AddNotification(ctx, "s1", domain.NotifyDelivered, "done")

	counts, err := env.svc.ClearDate(ctx, testDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Stops != 2 || counts.Routes != 1 || counts.Notifications != 1 {
		t.Fatalf("counts = %+v", counts)
	}

	left, _ := env.stops.ListByDate(ctx, testDate)
	if len(left) != 0 {
		t.Fatalf("%d stops left after clear", len(left))
	}
}
