package region

// cities lists the towns and neighborhoods recognized inside each supported metro.
var cities = []city{
	{name: "Houston", metro: Houston, aliases: []string{"htx", "h-town"}},
	{name: "Sugar Land", metro: Houston, aliases: []string{"sugarland"}},
	{name: "Katy", metro: Houston},
	{name: "Pearland", metro: Houston},
	{name: "The Woodlands", metro: Houston, aliases: []string{"woodlands"}},
	{name: "League City", metro: Houston},
	{name: "Missouri City", metro: Houston},
	{name: "Pasadena", metro: Houston},
	{name: "Baytown", metro: Houston},
	{name: "Conroe", metro: Houston},
	{name: "Friendswood", metro: Houston},
	{name: "Galveston", metro: Houston},
	{name: "Texas City", metro: Houston},
	{name: "Rosenberg", metro: Houston},
	{name: "Richmond", metro: Houston},
	{name: "Humble", metro: Houston},
	{name: "Spring", metro: Houston},
	{name: "Cypress", metro: Houston},
	{name: "Tomball", metro: Houston},
	{name: "Deer Park", metro: Houston},
	{name: "La Porte", metro: Houston},
	{name: "Webster", metro: Houston},
	{name: "Alvin", metro: Houston},
	{name: "Angleton", metro: Houston},
	{name: "Bellaire", metro: Houston},
	{name: "West University Place", metro: Houston, aliases: []string{"west u", "west university"}},
	{name: "Stafford", metro: Houston},
	{name: "Dickinson", metro: Houston},
	{name: "Seabrook", metro: Houston},
	{name: "Kemah", metro: Houston},
	{name: "Clear Lake", metro: Houston},
	{name: "Fulshear", metro: Houston},
	{name: "Magnolia", metro: Houston},
	{name: "Atascocita", metro: Houston},
	{name: "Kingwood", metro: Houston},
	{name: "Cinco Ranch", metro: Houston},
	{name: "Sienna", metro: Houston},
	{name: "Fresno", metro: Houston},
	{name: "Manvel", metro: Houston},
	{name: "Rosharon", metro: Houston},
	{name: "Mont Belvieu", metro: Houston},
	{name: "Dayton", metro: Houston},
	{name: "Liberty", metro: Houston},
	{name: "Waller", metro: Houston},
	{name: "Hempstead", metro: Houston},
	{name: "Sealy", metro: Houston},
	{name: "Needville", metro: Houston},
	{name: "Santa Fe", metro: Houston},
	{name: "Hitchcock", metro: Houston},
	{name: "La Marque", metro: Houston},
	{name: "Brookshire", metro: Houston},
	{name: "Meadows Place", metro: Houston},
	{name: "Hunters Creek Village", metro: Houston},
	{name: "Piney Point Village", metro: Houston},
	{name: "Bunker Hill Village", metro: Houston},
	{name: "Memorial", metro: Houston},
	{name: "Champions", metro: Houston},
	{name: "Copperfield", metro: Houston},
	{name: "Jersey Village", metro: Houston},
	{name: "Austin", metro: Austin, aliases: []string{"atx"}},
	{name: "Round Rock", metro: Austin},
	{name: "Cedar Park", metro: Austin},
	{name: "Pflugerville", metro: Austin},
	{name: "Georgetown", metro: Austin},
	{name: "Leander", metro: Austin},
	{name: "Kyle", metro: Austin},
	{name: "Buda", metro: Austin},
	{name: "San Marcos", metro: Austin},
	{name: "Hutto", metro: Austin},
	{name: "Lakeway", metro: Austin},
	{name: "Bee Cave", metro: Austin, aliases: []string{"bee caves"}},
	{name: "Dripping Springs", metro: Austin},
	{name: "Bastrop", metro: Austin},
	{name: "Smithville", metro: Austin},
	{name: "Taylor", metro: Austin},
	{name: "Elgin", metro: Austin},
	{name: "Manor", metro: Austin},
	{name: "Lockhart", metro: Austin},
	{name: "Liberty Hill", metro: Austin},
	{name: "Wimberley", metro: Austin},
	{name: "Lago Vista", metro: Austin},
	{name: "Jollyville", metro: Austin},
	{name: "Brushy Creek", metro: Austin},
	{name: "Westlake", metro: Austin, aliases: []string{"westlake hills"}},
	{name: "Rollingwood", metro: Austin},
	{name: "Barton Creek", metro: Austin},
	{name: "Mueller", metro: Austin},
	{name: "East Austin", metro: Austin},
	{name: "South Austin", metro: Austin},
	{name: "North Austin", metro: Austin},
	{name: "West Austin", metro: Austin},
	{name: "Dallas", metro: DFW, aliases: []string{"dfw", "big d"}},
	{name: "Fort Worth", metro: DFW, aliases: []string{"fw", "ft worth", "ft. worth"}},
	{name: "Arlington", metro: DFW},
	{name: "Plano", metro: DFW},
	{name: "Frisco", metro: DFW},
	{name: "McKinney", metro: DFW},
	{name: "Irving", metro: DFW},
	{name: "Garland", metro: DFW},
	{name: "Grand Prairie", metro: DFW},
	{name: "Denton", metro: DFW},
	{name: "Mesquite", metro: DFW},
	{name: "Carrollton", metro: DFW},
	{name: "Richardson", metro: DFW},
	{name: "Allen", metro: DFW},
	{name: "Lewisville", metro: DFW},
	{name: "Flower Mound", metro: DFW},
	{name: "Mansfield", metro: DFW},
	{name: "North Richland Hills", metro: DFW, aliases: []string{"nrh"}},
	{name: "Rowlett", metro: DFW},
	{name: "Euless", metro: DFW},
	{name: "Bedford", metro: DFW},
	{name: "Grapevine", metro: DFW},
	{name: "Keller", metro: DFW},
	{name: "Southlake", metro: DFW},
	{name: "Colleyville", metro: DFW},
	{name: "Hurst", metro: DFW},
	{name: "Coppell", metro: DFW},
	{name: "The Colony", metro: DFW},
	{name: "Rockwall", metro: DFW},
	{name: "Wylie", metro: DFW},
	{name: "Prosper", metro: DFW},
	{name: "Celina", metro: DFW},
	{name: "Little Elm", metro: DFW},
	{name: "Sachse", metro: DFW},
	{name: "Murphy", metro: DFW},
	{name: "Duncanville", metro: DFW},
	{name: "DeSoto", metro: DFW, aliases: []string{"desoto"}},
	{name: "Cedar Hill", metro: DFW},
	{name: "Lancaster", metro: DFW},
	{name: "Waxahachie", metro: DFW},
	{name: "Midlothian", metro: DFW},
	{name: "Burleson", metro: DFW},
	{name: "Cleburne", metro: DFW},
	{name: "Weatherford", metro: DFW},
	{name: "Azle", metro: DFW},
	{name: "Trophy Club", metro: DFW},
	{name: "Corinth", metro: DFW},
	{name: "Highland Village", metro: DFW},
	{name: "Argyle", metro: DFW},
	{name: "Justin", metro: DFW},
	{name: "Saginaw", metro: DFW},
	{name: "White Settlement", metro: DFW},
	{name: "Benbrook", metro: DFW},
	{name: "Lake Worth", metro: DFW},
	{name: "Crowley", metro: DFW},
	{name: "Kennedale", metro: DFW},
	{name: "Farmers Branch", metro: DFW},
	{name: "Addison", metro: DFW},
	{name: "University Park", metro: DFW},
	{name: "Highland Park", metro: DFW},
	{name: "Forney", metro: DFW},
	{name: "Kaufman", metro: DFW},
	{name: "Terrell", metro: DFW},
	{name: "Ennis", metro: DFW},
	{name: "Red Oak", metro: DFW},
	{name: "Anna", metro: DFW},
	{name: "Melissa", metro: DFW},
	{name: "Princeton", metro: DFW},
	{name: "Fate", metro: DFW},
	{name: "Heath", metro: DFW},
	{name: "Royse City", metro: DFW},
	{name: "Haslet", metro: DFW},
	{name: "Roanoke", metro: DFW},
	{name: "Decatur", metro: DFW},
	{name: "Lake Dallas", metro: DFW},
	{name: "Oak Point", metro: DFW},
	{name: "Aubrey", metro: DFW},
	{name: "Pilot Point", metro: DFW},
	{name: "Sanger", metro: DFW},
}
