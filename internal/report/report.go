// Package report holds the structured records extracted from maritime
// crime documents. Field names follow the JSON produced by the analysis
// prompts so extraction output decodes directly into these types.
package report

// Species identifies one species involved in an incident or product.
// Verified is set by the pipeline after checking the scientific name
// against the species registry; nil means the check never ran.
type Species struct {
	CommonName     string  `json:"commonName"`
	ScientificName *string `json:"scientificName,omitempty"`
	ASFISCode      *string `json:"asfisCode,omitempty"`
	ProductType    *string `json:"productType,omitempty"`
	LiveWeight     *string `json:"liveWeight,omitempty"`
	Verified       *bool   `json:"verified,omitempty"`
}

// CrewMember is one crew member named in an incident.
type CrewMember struct {
	Name          string  `json:"name"`
	Nationality   *string `json:"nationality,omitempty"`
	Role          *string `json:"role,omitempty"`
	Age           *int    `json:"age,omitempty"`
	TripStartDate *string `json:"tripStartDate,omitempty"`
	TripEndDate   *string `json:"tripEndDate,omitempty"`
}

// IUU classification types.
const (
	IUUTypeIllegalFishing             = "Illegal Fishing"
	IUUTypeIllegalFishingAssociated   = "Illegal Fishing Associated Activities"
	IUUTypeUnreportedCatch            = "Unreported Catch"
	IUUTypeUnreportedCatchAssociated  = "Unreported Catch Associated Activities"
	IUUTypeUnregulatedActors          = "Unregulated Actors"
	IUUTypeUnregulatedAreasOrStocks   = "Unregulated Areas or Stocks"
	IUUTypeSeafoodFraudOrMislabeling  = "Seafood Fraud or Mislabeling"
	IUUTypeForcedLaborOrLaborAbuse    = "Forced Labor or Labor Abuse"
	IUUTypeCircumventingProhibitions  = "Circumventing Prohibitions or Sanctions"
	IUUTypeIllegalAquaculturePractice = "Illegal Aquacultural Practices"
	IUUTypeOther                      = "Other"
)

// IUUClassification is one category assignment with its justification.
type IUUClassification struct {
	IUUType       string   `json:"iuuType"`
	IUUSubType    []string `json:"iuuSubType,omitempty"`
	IUUTypeReason string   `json:"iuuTypeReason"`
}

// EventData describes the primary event that triggered the document.
type EventData struct {
	EventCategory string  `json:"eventCategory"`
	EventDate     *string `json:"eventDate,omitempty"`
	EventLocation string  `json:"eventLocation"`
	Resolution    string  `json:"resolution"`
}

// CatchSourceData covers the who/when/where/how of the catch itself.
type CatchSourceData struct {
	VesselName                      *string      `json:"vesselName,omitempty"`
	VesselUniqueID                  *string      `json:"vesselUniqueId,omitempty"`
	VesselFlag                      *string      `json:"vesselFlag,omitempty"`
	InternationalRadioCallSign      *string      `json:"internationalRadioCallSign,omitempty"`
	RFMOVesselNumber                *string      `json:"rfmoVesselNumber,omitempty"`
	SatelliteVesselTrackingAuth     *string      `json:"satelliteVesselTrackingAuthority,omitempty"`
	PublicVesselRegistryLink        *string      `json:"publicVesselRegistryLink,omitempty"`
	VesselCaptain                   *string      `json:"vesselCaptain,omitempty"`
	VesselOwner                     *string      `json:"vesselOwner,omitempty"`
	BeneficialOwner                 *string      `json:"beneficialOwner,omitempty"`
	RecruitmentAgency               *string      `json:"recruitmentAgency,omitempty"`
	RecruitmentChannel              *string      `json:"recruitmentChannel,omitempty"`
	TradeUnionWorkersOrganization   *string      `json:"tradeUnionWorkersOrganization,omitempty"`
	MigrantWorkers                  *bool        `json:"migrantWorkers,omitempty"`
	MigrantWorkersDetails           *string      `json:"migrantWorkersDetails,omitempty"`
	GenderOfWorkers                 *string      `json:"genderOfWorkers,omitempty"`
	CrewList                        []CrewMember `json:"crewList,omitempty"`
	FisheryImprovementProject       *string      `json:"fisheryImprovementProject,omitempty"`
	CatchDate                       *string      `json:"catchDate,omitempty"`
	VesselTripDates                 *string      `json:"vesselTripDates,omitempty"`
	TimeAtSea                       *string      `json:"timeAtSea,omitempty"`
	CatchArea                       *string      `json:"catchArea,omitempty"`
	AuthorizationToFish             *string      `json:"authorizationToFish,omitempty"`
	ValidLicense                    *bool        `json:"validLicense,omitempty"`
	LicensedDateRange               *string      `json:"licensedDateRange,omitempty"`
	LicensedFishingArea             *string      `json:"licensedFishingArea,omitempty"`
	CoastalZoneEntryAndExit         *string      `json:"coastalZoneEntryAndExit,omitempty"`
	AvailabilityOfCatchCoordinates  *string      `json:"availabilityOfCatchCoordinates,omitempty"`
	AISVMSCoverageRate              *string      `json:"aisVmsCoverageRate,omitempty"`
	FishingMethod                   *string      `json:"fishingMethod,omitempty"`
	ProductionMethod                *string      `json:"productionMethod,omitempty"`
	HarvestCertification            *string      `json:"harvestCertification,omitempty"`
	PartyToUNFSA                    *bool        `json:"partyToUnfsa,omitempty"`
	CardedUnderEUIUURegulation      *bool        `json:"cardedUnderEuIuuRegulation,omitempty"`
	InNOAABiannualReport            *bool        `json:"inNoaaBiannualReport,omitempty"`
	HasHumanWelfarePolicy           *bool        `json:"hasHumanWelfarePolicy,omitempty"`
	HumanWelfareStandards           *string      `json:"humanWelfareStandards,omitempty"`
	HasGrievanceMechanism           *bool        `json:"hasGrievanceMechanism,omitempty"`
	GrievanceMechanism              *string      `json:"grievanceMechanism,omitempty"`
	SafetyInspection                *bool        `json:"safetyInspection,omitempty"`
	ThirdPartyInspection            *bool        `json:"thirdPartyInspection,omitempty"`
	InspectionDetails               *string      `json:"inspectionDetails,omitempty"`
	HealthSafetyRecords             *string      `json:"healthSafetyRecords,omitempty"`
	WorkContracts                   *bool        `json:"workContracts,omitempty"`
	HasWifi                         *bool        `json:"hasWifi,omitempty"`
}

// AquacultureData covers farmed-fishery incidents.
type AquacultureData struct {
	FarmName              *string `json:"farmName,omitempty"`
	FarmUniqueID          *string `json:"farmUniqueId,omitempty"`
	FarmLocation          *string `json:"farmLocation,omitempty"`
	FingerlingHarvestDate *string `json:"fingerlingHarvestDate,omitempty"`
	HarvestDate           *string `json:"harvestDate,omitempty"`
	FarmCountry           *string `json:"farmCountry,omitempty"`
	ProteinSource         *string `json:"proteinSource,omitempty"`
	FarmingMethod         *string `json:"farmingMethod,omitempty"`
	StockingQuantity      *string `json:"stockingQuantity,omitempty"`
}

// TransshipmentData covers at-sea transfers between vessels.
type TransshipmentData struct {
	VesselName                 *string `json:"vesselName,omitempty"`
	VesselUniqueID             *string `json:"vesselUniqueId,omitempty"`
	VesselFlag                 *string `json:"vesselFlag,omitempty"`
	VesselRegistration         *string `json:"vesselRegistration,omitempty"`
	TransshipmentDeclaration   *bool   `json:"transshipmentDeclaration,omitempty"`
	TransshipmentAuthorization *bool   `json:"transshipmentAuthorization,omitempty"`
	IMONumber                  *string `json:"imoNumber,omitempty"`
	VesselMasterInformation    *string `json:"vesselMasterInformation,omitempty"`
	DatesOfTransshipment       *string `json:"datesOfTransshipment,omitempty"`
	LocationOfTransshipment    *string `json:"locationOfTransshipment,omitempty"`
}

// AggregationData covers the aggregator stage of the supply chain.
type AggregationData struct {
	AggregatorName    *string `json:"aggregatorName,omitempty"`
	AggregatorID      *string `json:"aggregatorId,omitempty"`
	AggregatorLicense *string `json:"aggregatorLicense,omitempty"`
}

// LandingData covers port entry and landing.
type LandingData struct {
	Authorization    *string `json:"authorization,omitempty"`
	PortEntryRequest *string `json:"portEntryRequest,omitempty"`
	DatesOfLanding   *string `json:"datesOfLanding,omitempty"`
	PortOfLanding    *string `json:"portOfLanding,omitempty"`
	PartyToPSMA      *bool   `json:"partyToPsma,omitempty"`
}

// ProductData covers processed products traced to the incident.
type ProductData struct {
	ProductType        *string   `json:"productType,omitempty"`
	Species            []Species `json:"species,omitempty"`
	HSCode             *string   `json:"hsCode,omitempty"`
	SKU                *string   `json:"sku,omitempty"`
	ProcessedWeight    *string   `json:"processedWeight,omitempty"`
	ProcessingLocation *string   `json:"processingLocation,omitempty"`
	AdditivesUsed      *string   `json:"additivesUsed,omitempty"`
	Source             *string   `json:"source,omitempty"`
	Destination        *string   `json:"destination,omitempty"`
	ReceptionDate      *string   `json:"receptionDate,omitempty"`
}

// TradeData covers import and export parties.
type TradeData struct {
	ExporterInformation *string `json:"exporterInformation,omitempty"`
	ImporterInformation *string `json:"importerInformation,omitempty"`
}

// DistributionData covers onward movement of the product.
type DistributionData struct {
	FirstBuyer         *string `json:"firstBuyer,omitempty"`
	TransportVehicleID *string `json:"transportVehicleId,omitempty"`
	ProductionDate     *string `json:"productionDate,omitempty"`
	ExpiryDate         *string `json:"expiryDate,omitempty"`
	MovementDate       *string `json:"movementDate,omitempty"`
}

// IncidentExtraction is the full structured record extracted for one
// incident span.
type IncidentExtraction struct {
	CatchSourceInformation   *CatchSourceData   `json:"catchSourceInformation,omitempty"`
	AquacultureInformation   *AquacultureData   `json:"aquacultureInformation,omitempty"`
	TransshipmentInformation *TransshipmentData `json:"transshipmentInformation,omitempty"`
	AggregationInformation   *AggregationData   `json:"aggregationInformation,omitempty"`
	LandingInformation       *LandingData       `json:"landingInformation,omitempty"`
	TradeInformation         *TradeData         `json:"tradeInformation,omitempty"`
	DistributionInformation  *DistributionData  `json:"distributionInformation,omitempty"`
	EventData                *EventData         `json:"eventData,omitempty"`

	SpeciesInvolved  []Species     `json:"speciesInvolved"`
	ProductsInvolved []ProductData `json:"productsInvolved"`

	ChainOfCustody    *string `json:"chainOfCustody,omitempty"`
	SanitaryLicenseID *string `json:"sanitaryLicenseId,omitempty"`

	Description string `json:"description"`

	Classifications []IUUClassification `json:"iuuClassifications"`
}

// VesselName returns the incident's vessel name, or "" when unknown.
func (e *IncidentExtraction) VesselName() string {
	if e == nil || e.CatchSourceInformation == nil || e.CatchSourceInformation.VesselName == nil {
		return ""
	}
	return *e.CatchSourceInformation.VesselName
}

// EventDate returns the raw event date string, or "" when unknown.
func (e *IncidentExtraction) EventDate() string {
	if e == nil || e.EventData == nil || e.EventData.EventDate == nil {
		return ""
	}
	return *e.EventData.EventDate
}

// EventLocation returns the event location, or "" when unknown.
func (e *IncidentExtraction) EventLocation() string {
	if e == nil || e.EventData == nil {
		return ""
	}
	return e.EventData.EventLocation
}

// OverviewExtraction is the structured record extracted from an
// industry-overview document.
type OverviewExtraction struct {
	Species   []Species            `json:"species"`
	Countries []string             `json:"countries"`
	Companies []string             `json:"companies"`
	Incidents []IncidentExtraction `json:"incidents"`
	Summary   string               `json:"summary"`
}
