package catalog

// RegisterSouth adds markets of the southern states
func RegisterSouth(b *Builder) {
	// Andhra Pradesh
	b.Register("AP001", "Kurnool APMC", "Andhra Pradesh", "Kurnool", 15.83, 78.04)
	b.Register("AP002", "Guntur Market", "Andhra Pradesh", "Guntur", 16.31, 80.44)
	b.Register("AP003", "Vijayawada APMC", "Andhra Pradesh", "Krishna", 16.51, 80.65)

	// Telangana
	b.Register("TG001", "Hyderabad APMC", "Telangana", "Hyderabad", 17.39, 78.49)
	b.Register("TG002", "Warangal Mandi", "Telangana", "Warangal", 17.97, 79.59)

	// Karnataka
	b.Register("KA001", "Bengaluru APMC", "Karnataka", "Bengaluru Urban", 12.97, 77.59)
	b.Register("KA002", "Hubli APMC", "Karnataka", "Dharwad", 15.36, 75.12)
	b.Register("KA003", "Mysuru Mandi", "Karnataka", "Mysuru", 12.30, 76.64)

	// Tamil Nadu
	b.Register("TN001", "Chennai APMC", "Tamil Nadu", "Chennai", 13.08, 80.27)
	b.Register("TN002", "Coimbatore Mandi", "Tamil Nadu", "Coimbatore", 11.02, 76.96)
	b.Register("TN003", "Madurai APMC", "Tamil Nadu", "Madurai", 9.93, 78.12)
}
