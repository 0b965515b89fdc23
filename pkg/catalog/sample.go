package catalog

// Sample returns a small four-service catalog: a CRM feeding billing,
// billing feeding inventory, inventory feeding reporting, and two flows
// over those feeds. It backs the --sample flag and tests.
func Sample() Document {
	return Document{
		Services: []Service{
			{ID: "CRM001", Name: "Customer CRM", Description: "Customer relationship management"},
			{ID: "BIL001", Name: "Billing System", Description: "Invoicing and payments"},
			{ID: "INV001", Name: "Inventory Management", Description: "Stock levels and warehousing"},
			{ID: "REP001", Name: "Reporting System", Description: "Business intelligence reports"},
		},
		Feeds: []Feed{
			{ID: "F001", Name: "Customer Data Sync", SupplierID: "CRM001", ReceiverID: "BIL001",
				Description: "Customer master data", Type: "API", Frequency: "Real-time", Format: "JSON"},
			{ID: "F002", Name: "Billing to Inventory", SupplierID: "BIL001", ReceiverID: "INV001",
				Description: "Order lines for stock reservation", Type: "Queue", Frequency: "Hourly", Format: "XML"},
			{ID: "F003", Name: "Inventory Reports", SupplierID: "INV001", ReceiverID: "REP001",
				Description: "Daily stock snapshot", Type: "File", Frequency: "Daily", Format: "CSV"},
		},
		Flows: []Flow{
			{ID: "FL001", Name: "Customer to Reporting Flow", Feeds: []string{"F001", "F002", "F003"},
				Description: "End-to-end customer data path"},
			{ID: "FL002", Name: "Billing to Reporting Flow", Feeds: []string{"F002", "F003"},
				Description: "Billing data reaching reports"},
		},
	}
}
