package scope

// defaultTowns is a gazetteer of New Hampshire municipalities. Deployments
// add their own through JURISDICTION_GAZETTEER.
var defaultTowns = []string{
	"Amherst", "Atkinson", "Auburn", "Barrington", "Bedford", "Berlin", "Bow",
	"Brentwood", "Candia", "Chester", "Claremont", "Concord", "Conway",
	"Danville", "Deerfield", "Derry", "Dover", "Durham", "East Kingston",
	"Epping", "Epsom", "Exeter", "Farmington", "Franklin", "Fremont",
	"Gilford", "Goffstown", "Greenland", "Hampstead", "Hampton",
	"Hampton Falls", "Hanover", "Henniker", "Hillsborough", "Hollis",
	"Hooksett", "Hopkinton", "Hudson", "Jaffrey", "Keene", "Kensington",
	"Kingston", "Laconia", "Lancaster", "Lebanon", "Lee", "Litchfield",
	"Littleton", "Londonderry", "Madbury", "Manchester", "Meredith",
	"Merrimack", "Milford", "Nashua", "New London", "Newington", "Newmarket",
	"Newton", "North Hampton", "Northwood", "Nottingham", "Pelham",
	"Pembroke", "Peterborough", "Plaistow", "Plymouth", "Portsmouth",
	"Raymond", "Rochester", "Rye", "Salem", "Sandown", "Seabrook",
	"Somersworth", "Stratham", "Weare", "Windham", "Wolfeboro",
}
