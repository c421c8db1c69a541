// Package mocks provides gomock implementations of the portal's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	capability := mocks.NewMockLocationCapability(ctrl)
//	capability.EXPECT().CurrentPosition(gomock.Any(), gomock.Any()).Return(pos, nil)
package mocks

// LocationCapability and Notifier drive the location engine.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=location_mock.go github.com/civicconnect/portal/internal/ports LocationCapability,Notifier

// DraftStore and GrievanceRepository back the grievance services.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=grievance_mock.go github.com/civicconnect/portal/internal/ports DraftStore,GrievanceRepository
