package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salesrelay/salesrelay/internal/config"
	"github.com/salesrelay/salesrelay/internal/ids"
	"github.com/salesrelay/salesrelay/internal/knowledge"
	"github.com/salesrelay/salesrelay/internal/store"
)

var (
	kbCompany   string
	kbIndustry  string
	kbSegment   string
	kbChallenge string
	kbResult    string
	kbMetric    string
	kbStages    string

	kbCompetitor     string
	kbDifferentiator string
	kbCategory       string
	kbEvidence       string

	kbObjection string
	kbResponse  string

	kbMethodologyName string
	kbDescription     string
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Curate the enablement knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var kbAddCaseStudyCmd = &cobra.Command{
	Use:   "add-case-study",
	Short: "Add a verified case study",
	RunE:  runKBAddCaseStudy,
}

var kbAddPositioningCmd = &cobra.Command{
	Use:   "add-positioning",
	Short: "Add a competitor positioning entry",
	RunE:  runKBAddPositioning,
}

var kbAddObjectionCmd = &cobra.Command{
	Use:   "add-objection",
	Short: "Add an objection and its response",
	RunE:  runKBAddObjection,
}

var kbSetMethodologyCmd = &cobra.Command{
	Use:   "set-methodology",
	Short: "Set the sales methodology",
	RunE:  runKBSetMethodology,
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge base contents",
	RunE:  runKBList,
}

var kbRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an entry by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runKBRemove,
}

func init() {
	kbAddCaseStudyCmd.Flags().StringVar(&kbCompany, "company", "", "Customer name")
	kbAddCaseStudyCmd.Flags().StringVar(&kbIndustry, "industry", "", "Customer industry")
	kbAddCaseStudyCmd.Flags().StringVar(&kbSegment, "segment", "", "Market segment")
	kbAddCaseStudyCmd.Flags().StringVar(&kbChallenge, "challenge", "", "Problem the customer faced")
	kbAddCaseStudyCmd.Flags().StringVar(&kbResult, "result", "", "Verified outcome")
	kbAddCaseStudyCmd.Flags().StringVar(&kbMetric, "metric", "", "Headline metric")
	kbAddCaseStudyCmd.Flags().StringVar(&kbStages, "stages", "", "Comma-separated relevant stages")

	kbAddPositioningCmd.Flags().StringVar(&kbCompetitor, "competitor", "", "Competitor name")
	kbAddPositioningCmd.Flags().StringVar(&kbDifferentiator, "differentiator", "", "Our differentiation")
	kbAddPositioningCmd.Flags().StringVar(&kbCategory, "category", "", "Positioning category")
	kbAddPositioningCmd.Flags().StringVar(&kbEvidence, "evidence", "", "Supporting evidence")

	kbAddObjectionCmd.Flags().StringVar(&kbObjection, "objection", "", "Objection text")
	kbAddObjectionCmd.Flags().StringVar(&kbResponse, "response", "", "Curated response")
	kbAddObjectionCmd.Flags().StringVar(&kbCompetitor, "competitor", "", "Competitor this counters")
	kbAddObjectionCmd.Flags().StringVar(&kbStages, "stages", "", "Comma-separated relevant stages")

	kbSetMethodologyCmd.Flags().StringVar(&kbMethodologyName, "name", "", "Methodology name")
	kbSetMethodologyCmd.Flags().StringVar(&kbDescription, "description", "", "Methodology description")

	kbCmd.AddCommand(kbAddCaseStudyCmd)
	kbCmd.AddCommand(kbAddPositioningCmd)
	kbCmd.AddCommand(kbAddObjectionCmd)
	kbCmd.AddCommand(kbSetMethodologyCmd)
	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbRemoveCmd)
}

func openStore() (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var pusher *store.SyncPusher
	if cfg.Sync.Enabled {
		pusher = store.NewSyncPusher(cfg.Sync.BaseURL, cfg.Sync.Token)
	}
	return store.New(cfg.Paths.DataDir, pusher)
}

func splitStages(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func runKBAddCaseStudy(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(kbCompany) == "" || strings.TrimSpace(kbResult) == "" {
		return fmt.Errorf("--company and --result are required")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	kb, err := st.Knowledge()
	if err != nil {
		return err
	}
	existing := make([]string, 0, len(kb.CaseStudies))
	for _, cs := range kb.CaseStudies {
		existing = append(existing, cs.ID)
	}
	entry := knowledge.CaseStudy{
		ID:             ids.Sequence("cs", existing),
		Company:        strings.TrimSpace(kbCompany),
		Industry:       strings.TrimSpace(kbIndustry),
		Segment:        strings.TrimSpace(kbSegment),
		Challenge:      strings.TrimSpace(kbChallenge),
		Result:         strings.TrimSpace(kbResult),
		Metric:         strings.TrimSpace(kbMetric),
		RelevantStages: splitStages(kbStages),
	}
	kb.CaseStudies = append(kb.CaseStudies, entry)
	if err := st.SaveKnowledge(kb); err != nil {
		return err
	}
	fmt.Printf("Added case study %s (%s)\n", entry.ID, entry.Company)
	return nil
}

func runKBAddPositioning(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(kbCompetitor) == "" || strings.TrimSpace(kbDifferentiator) == "" {
		return fmt.Errorf("--competitor and --differentiator are required")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	kb, err := st.Knowledge()
	if err != nil {
		return err
	}
	existing := make([]string, 0, len(kb.Positioning))
	for _, cp := range kb.Positioning {
		existing = append(existing, cp.ID)
	}
	entry := knowledge.CompetitorPositioning{
		ID:             ids.Sequence("cp", existing),
		Competitor:     strings.TrimSpace(kbCompetitor),
		Differentiator: strings.TrimSpace(kbDifferentiator),
		Category:       strings.TrimSpace(kbCategory),
		Evidence:       strings.TrimSpace(kbEvidence),
	}
	kb.Positioning = append(kb.Positioning, entry)
	if err := st.SaveKnowledge(kb); err != nil {
		return err
	}
	fmt.Printf("Added positioning %s (vs %s)\n", entry.ID, entry.Competitor)
	return nil
}

func runKBAddObjection(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(kbObjection) == "" || strings.TrimSpace(kbResponse) == "" {
		return fmt.Errorf("--objection and --response are required")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	kb, err := st.Knowledge()
	if err != nil {
		return err
	}
	existing := make([]string, 0, len(kb.Objections))
	for _, ob := range kb.Objections {
		existing = append(existing, ob.ID)
	}
	entry := knowledge.Objection{
		ID:             ids.Sequence("ob", existing),
		Objection:      strings.TrimSpace(kbObjection),
		Response:       strings.TrimSpace(kbResponse),
		Competitor:     strings.TrimSpace(kbCompetitor),
		RelevantStages: splitStages(kbStages),
	}
	kb.Objections = append(kb.Objections, entry)
	if err := st.SaveKnowledge(kb); err != nil {
		return err
	}
	fmt.Printf("Added objection %s\n", entry.ID)
	return nil
}

func runKBSetMethodology(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(kbMethodologyName) == "" {
		return fmt.Errorf("--name is required")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	kb, err := st.Knowledge()
	if err != nil {
		return err
	}
	kb.Methodology = &knowledge.Methodology{
		Name:        strings.TrimSpace(kbMethodologyName),
		Description: strings.TrimSpace(kbDescription),
	}
	if err := st.SaveKnowledge(kb); err != nil {
		return err
	}
	fmt.Printf("Methodology set to %s\n", kb.Methodology.Name)
	return nil
}

func runKBList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	kb, err := st.Knowledge()
	if err != nil {
		return err
	}
	fmt.Printf("Case studies (%d):\n", len(kb.CaseStudies))
	for _, cs := range kb.CaseStudies {
		fmt.Printf("  %-8s %-20s %-20s %s\n", cs.ID, cs.Company, cs.Industry, cs.Result)
	}
	fmt.Printf("Positioning (%d):\n", len(kb.Positioning))
	for _, cp := range kb.Positioning {
		fmt.Printf("  %-8s vs %-17s %s\n", cp.ID, cp.Competitor, cp.Differentiator)
	}
	fmt.Printf("Objections (%d):\n", len(kb.Objections))
	for _, ob := range kb.Objections {
		fmt.Printf("  %-8s %s\n", ob.ID, ob.Objection)
	}
	if kb.Methodology != nil {
		fmt.Printf("Methodology: %s\n", kb.Methodology.Name)
	}
	if !kb.Meta.Configured {
		fmt.Println("\nKnowledge base is not configured: deliveries are blocked until a case study is added.")
	}
	return nil
}

func runKBRemove(cmd *cobra.Command, args []string) error {
	id := strings.TrimSpace(args[0])
	st, err := openStore()
	if err != nil {
		return err
	}
	kb, err := st.Knowledge()
	if err != nil {
		return err
	}
	removed := false
	for i, cs := range kb.CaseStudies {
		if cs.ID == id {
			kb.CaseStudies = append(kb.CaseStudies[:i], kb.CaseStudies[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		for i, cp := range kb.Positioning {
			if cp.ID == id {
				kb.Positioning = append(kb.Positioning[:i], kb.Positioning[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		for i, ob := range kb.Objections {
			if ob.ID == id {
				kb.Objections = append(kb.Objections[:i], kb.Objections[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		return fmt.Errorf("no entry with id %s", id)
	}
	if err := st.SaveKnowledge(kb); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", id)
	return nil
}
