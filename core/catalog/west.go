package catalog

// RegisterWest adds markets of the western and central states
func RegisterWest(b *Builder) {
	// Maharashtra
	b.Register("MH001", "Lasalgaon APMC", "Maharashtra", "Nashik", 20.15, 74.23)
	b.Register("MH002", "Pune APMC", "Maharashtra", "Pune", 18.50, 73.87)
	b.Register("MH003", "Nagpur APMC", "Maharashtra", "Nagpur", 21.15, 79.09)
	b.Register("MH004", "Aurangabad APMC", "Maharashtra", "Aurangabad", 19.88, 75.34)

	// Gujarat
	b.Register("GJ001", "Ahmedabad APMC", "Gujarat", "Ahmedabad", 23.02, 72.57)
	b.Register("GJ002", "Surat APMC", "Gujarat", "Surat", 21.17, 72.83)
	b.Register("GJ003", "Rajkot Mandi", "Gujarat", "Rajkot", 22.30, 70.80)

	// Rajasthan
	b.Register("RJ001", "Jaipur APMC", "Rajasthan", "Jaipur", 26.91, 75.79)
	b.Register("RJ002", "Jodhpur Mandi", "Rajasthan", "Jodhpur", 26.24, 73.02)
	b.Register("RJ003", "Kota Mandi", "Rajasthan", "Kota", 25.21, 75.86)

	// Madhya Pradesh
	b.Register("MP001", "Indore APMC", "Madhya Pradesh", "Indore", 22.72, 75.86)
	b.Register("MP002", "Bhopal APMC", "Madhya Pradesh", "Bhopal", 23.26, 77.41)
	b.Register("MP003", "Jabalpur Mandi", "Madhya Pradesh", "Jabalpur", 23.18, 79.99)

	// Chhattisgarh
	b.Register("CG001", "Raipur APMC", "Chhattisgarh", "Raipur", 21.25, 81.63)
}
