package ir

import "testing"

func TestBuildTrafficManagersAppliesMulticastGroups(t *testing.T) {
	doc := mustLoad(t, `
air_types: [traffic_manager]
air_attributes:
  traffic_manager: [port_count, queues_per_port, multicast_groups]
tm0:
  type: traffic_manager
  port_count: 4
  queues_per_port: 2
  multicast_groups:
    "1": [[0, 0], [1, 0]]
`)

	tms, err := BuildTrafficManagers(doc)
	if err != nil {
		t.Fatal(err)
	}
	if tms["tm0"] == nil {
		t.Fatal("expected traffic manager \"tm0\" to be built")
	}
}

func TestBuildTrafficManagersRejectsMissingPortCount(t *testing.T) {
	doc := mustLoad(t, `
air_types: [traffic_manager]
air_attributes:
  traffic_manager: [port_count, queues_per_port]
tm0:
  type: traffic_manager
  queues_per_port: 2
`)

	if _, err := BuildTrafficManagers(doc); err == nil {
		t.Fatal("expected an error for a missing port_count attribute")
	}
}
