package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	auditmetrics "rollcall/internal/audit/metrics"
	"rollcall/internal/binding"
	"rollcall/internal/directory"
	"rollcall/internal/registry"
)

// councilSlots are the per-guild positions evaluated for expected roles.
var councilSlots = []registry.Position{
	registry.PositionOwner,
	registry.PositionAdvisor,
	registry.PositionVoter,
}

// Engine computes one audit: a pure comparison of registry snapshot plus
// bindings against the directory's actual role assignments. It holds no
// long-lived state and is safe to invoke concurrently.
type Engine struct {
	registry  registry.Client
	directory directory.Client
	bindings  binding.Store
	logger    *slog.Logger
	metrics   *auditmetrics.Metrics
	features  Features
	fanout    int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the audit metrics.
func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithFeatures selects the active discrepancy categories.
func WithFeatures(f Features) Option {
	return func(e *Engine) { e.features = f }
}

// WithFanout bounds the parallelism of best-effort per-entry lookups.
func WithFanout(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fanout = n
		}
	}
}

// NewEngine builds a reconciliation engine over the given collaborators.
func NewEngine(reg registry.Client, dir directory.Client, bindings binding.Store, opts ...Option) *Engine {
	e := &Engine{
		registry:  reg,
		directory: dir,
		bindings:  bindings,
		logger:    slog.Default(),
		features:  AllFeatures(),
		fanout:    8,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// snapshot carries the synchronized inputs of one audit run.
type snapshot struct {
	users         []registry.User
	guilds        []registry.Guild
	memberList    []directory.Member
	members       map[string]directory.Member
	guildRoles    map[string]string
	positionRoles map[registry.Position]string
	boundRoles    map[string]bool
}

// Run executes the five audit passes and assembles the report. The bulk
// snapshot fetches are synchronization points: the audit fails as a unit if
// any of them errors. Per-entry lookups inside the passes are best-effort
// and never abort siblings.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	started := time.Now()

	snap, err := e.takeSnapshot(ctx)
	if err != nil {
		if e.metrics != nil {
			e.metrics.ObserveFailure()
		}
		return nil, err
	}

	report := newReport(uuid.New(), started)
	report.Disabled = e.features.Disabled()
	report.Stats = Stats{
		Users:       len(snap.users),
		Guilds:      len(snap.guilds),
		Advisorless: countAdvisorless(snap.guilds),
	}

	e.checkRegistryIntegrity(ctx, snap, report)
	e.checkAuthorization(ctx, snap, report)
	expected := deriveExpectedRoles(snap)
	e.detectDesync(snap, expected, report)
	sortReport(report)

	report.Duration = time.Since(started)
	e.observe(report)
	e.logger.InfoContext(ctx, "audit complete",
		"run_id", report.RunID,
		"discrepancies", report.TotalDiscrepancies(),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// takeSnapshot issues the bulk collaborator reads concurrently and loads the
// binding state. Any failure here aborts the audit.
func (e *Engine) takeSnapshot(ctx context.Context) (*snapshot, error) {
	var (
		users   []registry.User
		guilds  []registry.Guild
		members []directory.Member
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if users, err = e.registry.ListUsers(gctx); err != nil {
			return fmt.Errorf("list registry users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if guilds, err = e.registry.ListGuilds(gctx); err != nil {
			return fmt.Errorf("list registry guilds: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if members, err = e.directory.ListMembers(gctx); err != nil {
			return fmt.Errorf("list directory members: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bindings, err := e.bindings.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bindings: %w", err)
	}

	snap := &snapshot{
		users:         users,
		guilds:        guilds,
		memberList:    members,
		members:       make(map[string]directory.Member, len(members)),
		guildRoles:    make(map[string]string),
		positionRoles: make(map[registry.Position]string),
		boundRoles:    make(map[string]bool, len(bindings)),
	}
	for _, m := range members {
		snap.members[m.ID] = m
	}
	for _, b := range bindings {
		snap.boundRoles[b.RoleID] = true
		switch b.Kind {
		case binding.KindGuild:
			snap.guildRoles[b.Key] = b.RoleID
		case binding.KindPosition:
			snap.positionRoles[registry.Position(b.Key)] = b.RoleID
		}
	}
	return snap, nil
}

// checkRegistryIntegrity is Pass A: a pure function of the registry snapshot,
// except invite resolution, which fans out with bounded parallelism and keeps
// each guild's failure local.
func (e *Engine) checkRegistryIntegrity(ctx context.Context, snap *snapshot, report *Report) {
	if e.features.Enabled(FeatureOwnerless) {
		for _, guild := range snap.guilds {
			if guild.OwnerID == "" {
				report.Registry.Ownerless = append(report.Registry.Ownerless, guildRef(guild))
			}
		}
	}

	if e.features.Enabled(FeatureVoterless) {
		for _, guild := range snap.guilds {
			if guild.VoterID == "" {
				report.Registry.Voterless = append(report.Registry.Voterless, guildRef(guild))
			}
		}
	}

	if e.features.Enabled(FeatureDuplicateRepresentatives) {
		report.Registry.DuplicateRepresentatives = duplicateRepresentatives(snap.guilds)
	}

	if e.features.Enabled(FeatureWrongVoter) {
		for _, guild := range snap.guilds {
			if guild.VoterID != "" && guild.VoterID != guild.OwnerID && guild.VoterID != guild.AdvisorID {
				report.Registry.WrongVoter = append(report.Registry.WrongVoter, guildRef(guild))
			}
		}
	}

	if e.features.Enabled(FeatureDuplicateVoters) {
		report.Registry.DuplicateVoters = duplicateVoters(snap.guilds)
	}

	if e.features.Enabled(FeatureInvalidInvites) {
		report.Registry.InvalidInvites = e.checkInvites(ctx, snap.guilds)
	}
}

// checkInvites validates every guild's invite reference independently.
func (e *Engine) checkInvites(ctx context.Context, guilds []registry.Guild) []InviteIssue {
	issues := make([]*InviteIssue, len(guilds))
	sem := semaphore.NewWeighted(e.fanout)
	g := new(errgroup.Group)

	for i, guild := range guilds {
		if guild.InviteRef == "" {
			issues[i] = &InviteIssue{Guild: guildRef(guild), Kind: InviteMissing}
			continue
		}
		i, guild := i, guild
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				issues[i] = &InviteIssue{Guild: guildRef(guild), Kind: InviteUnresolved, InviteRef: guild.InviteRef}
				return nil
			}
			defer sem.Release(1)

			target, err := e.directory.ResolveInvite(ctx, guild.InviteRef)
			switch {
			case errors.Is(err, directory.ErrInvalidInvite):
				issues[i] = &InviteIssue{Guild: guildRef(guild), Kind: InviteInvalid, InviteRef: guild.InviteRef}
			case err != nil:
				e.logger.WarnContext(ctx, "invite resolution failed",
					"guild_id", guild.ID, "invite_ref", guild.InviteRef, "error", err)
				issues[i] = &InviteIssue{Guild: guildRef(guild), Kind: InviteUnresolved, InviteRef: guild.InviteRef}
			case target != guild.ID:
				issues[i] = &InviteIssue{Guild: guildRef(guild), Kind: InviteMisdirected, InviteRef: guild.InviteRef, TargetID: target}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]InviteIssue, 0, len(issues))
	for _, issue := range issues {
		if issue != nil {
			out = append(out, *issue)
		}
	}
	return out
}

// checkAuthorization is Pass B: registry authorization against directory
// membership.
func (e *Engine) checkAuthorization(ctx context.Context, snap *snapshot, report *Report) {
	authorized := make(map[string]bool)
	for _, user := range snap.users {
		if user.HasTag(registry.PositionOwner) || user.HasTag(registry.PositionAdvisor) {
			authorized[user.ID] = true
		}
	}

	if e.features.Enabled(FeatureUnauthorizedMembers) {
		for _, member := range snap.memberList {
			if member.IsAutomated || authorized[member.ID] {
				continue
			}
			report.Sync.UnauthorizedMembers = append(report.Sync.UnauthorizedMembers,
				MemberRef{ID: member.ID, DisplayName: member.DisplayName})
		}
	}

	if e.features.Enabled(FeatureMissingCouncilMembers) {
		var missing []string
		for id := range authorized {
			if _, ok := snap.members[id]; !ok {
				missing = append(missing, id)
			}
		}
		sort.Strings(missing)
		report.Sync.MissingCouncilMembers = e.resolveMissingCouncil(ctx, missing)
	}
}

// resolveMissingCouncil resolves authorized-but-absent ids to display
// identities, best-effort and independently. Unresolvable ids are omitted
// rather than failing the pass.
func (e *Engine) resolveMissingCouncil(ctx context.Context, ids []string) []MemberRef {
	refs := make([]*MemberRef, len(ids))
	sem := semaphore.NewWeighted(e.fanout)
	g := new(errgroup.Group)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			user, err := e.directory.GetUser(ctx, id)
			if err != nil {
				e.logger.DebugContext(ctx, "skipping unresolvable council member",
					"user_id", id, "error", err)
				return nil
			}
			refs[i] = &MemberRef{ID: id, DisplayName: user.DisplayName}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]MemberRef, 0, len(refs))
	for _, ref := range refs {
		if ref != nil {
			out = append(out, *ref)
		}
	}
	return out
}

// deriveExpectedRoles is Pass C: for every guild council slot whose holder
// is present in the HQ space, accumulate the guild-bound and position-bound
// roles. Observer-tagged users accumulate the observer binding regardless of
// directory presence; absence is only evaluated in Pass D.
func deriveExpectedRoles(snap *snapshot) map[string]map[string]bool {
	expected := make(map[string]map[string]bool)
	add := func(memberID, roleID string) {
		if expected[memberID] == nil {
			expected[memberID] = make(map[string]bool)
		}
		expected[memberID][roleID] = true
	}

	for _, guild := range snap.guilds {
		for _, slot := range councilSlots {
			holder := guild.CouncilSlot(slot)
			if holder == "" {
				continue
			}
			if _, ok := snap.members[holder]; !ok {
				// Holder left the space; skip silently.
				continue
			}
			if roleID, ok := snap.guildRoles[guild.ID]; ok {
				add(holder, roleID)
			}
			if roleID, ok := snap.positionRoles[slot]; ok {
				add(holder, roleID)
			}
		}
	}

	if roleID, ok := snap.positionRoles[registry.PositionObserver]; ok {
		for _, user := range snap.users {
			if user.HasTag(registry.PositionObserver) {
				add(user.ID, roleID)
			}
		}
	}
	return expected
}

// detectDesync is Pass D: symmetric drift detection between expected and
// assigned roles.
func (e *Engine) detectDesync(snap *snapshot, expected map[string]map[string]bool, report *Report) {
	if !e.features.Enabled(FeatureDesyncedRoles) {
		return
	}

	drift := make(map[string]*RoleDrift)
	entry := func(memberID string) *RoleDrift {
		if d, ok := drift[memberID]; ok {
			return d
		}
		ref := MemberRef{ID: memberID}
		if m, ok := snap.members[memberID]; ok {
			ref.DisplayName = m.DisplayName
		}
		d := &RoleDrift{Member: ref}
		drift[memberID] = d
		return d
	}

	// Expected roles the member does not hold.
	for memberID, roles := range expected {
		member, ok := snap.members[memberID]
		if !ok {
			continue
		}
		for roleID := range roles {
			if !member.HasRole(roleID) {
				d := entry(memberID)
				d.MissingRoleIDs = append(d.MissingRoleIDs, roleID)
			}
		}
	}

	// Bound roles the member holds without their registry standing
	// justifying them.
	for _, member := range snap.memberList {
		for _, roleID := range member.AssignedRoleIDs {
			if !snap.boundRoles[roleID] {
				continue
			}
			if expected[member.ID][roleID] {
				continue
			}
			d := entry(member.ID)
			d.UnexpectedRoleIDs = append(d.UnexpectedRoleIDs, roleID)
		}
	}

	for _, d := range drift {
		sort.Strings(d.MissingRoleIDs)
		sort.Strings(d.UnexpectedRoleIDs)
		report.Sync.DesyncedRoles = append(report.Sync.DesyncedRoles, *d)
	}
}

func (e *Engine) observe(report *Report) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveRun(report.Duration)
	e.metrics.AddDiscrepancies(string(FeatureOwnerless), len(report.Registry.Ownerless))
	e.metrics.AddDiscrepancies(string(FeatureVoterless), len(report.Registry.Voterless))
	e.metrics.AddDiscrepancies(string(FeatureDuplicateRepresentatives), len(report.Registry.DuplicateRepresentatives))
	e.metrics.AddDiscrepancies(string(FeatureWrongVoter), len(report.Registry.WrongVoter))
	e.metrics.AddDiscrepancies(string(FeatureDuplicateVoters), len(report.Registry.DuplicateVoters))
	e.metrics.AddDiscrepancies(string(FeatureInvalidInvites), len(report.Registry.InvalidInvites))
	e.metrics.AddDiscrepancies(string(FeatureUnauthorizedMembers), len(report.Sync.UnauthorizedMembers))
	e.metrics.AddDiscrepancies(string(FeatureMissingCouncilMembers), len(report.Sync.MissingCouncilMembers))
	e.metrics.AddDiscrepancies(string(FeatureDesyncedRoles), len(report.Sync.DesyncedRoles))
}

// duplicateRepresentatives groups guilds by each user appearing as owner or
// advisor; users representing more than one distinct guild are reported with
// the role held per guild.
func duplicateRepresentatives(guilds []registry.Guild) []DuplicateRepresentative {
	byUser := make(map[string][]GuildRole)
	for _, guild := range guilds {
		users := []string{}
		if guild.OwnerID != "" {
			users = append(users, guild.OwnerID)
		}
		if guild.AdvisorID != "" && guild.AdvisorID != guild.OwnerID {
			users = append(users, guild.AdvisorID)
		}
		for _, userID := range users {
			role := RoleAdvisor
			switch {
			case userID == guild.OwnerID && userID == guild.AdvisorID:
				role = RoleOwnerAdvisor
			case userID == guild.OwnerID:
				role = RoleOwner
			}
			byUser[userID] = append(byUser[userID], GuildRole{Guild: guildRef(guild), Role: role})
		}
	}

	var out []DuplicateRepresentative
	for userID, entries := range byUser {
		if len(entries) < 2 {
			continue
		}
		out = append(out, DuplicateRepresentative{UserID: userID, Guilds: entries})
	}
	return out
}

// duplicateVoters groups guilds by voter id; ids shared across more than one
// guild are reported. Voterless guilds are covered by their own category.
func duplicateVoters(guilds []registry.Guild) []DuplicateVoter {
	byVoter := make(map[string][]GuildRef)
	for _, guild := range guilds {
		if guild.VoterID == "" {
			continue
		}
		byVoter[guild.VoterID] = append(byVoter[guild.VoterID], guildRef(guild))
	}

	var out []DuplicateVoter
	for voterID, refs := range byVoter {
		if len(refs) < 2 {
			continue
		}
		out = append(out, DuplicateVoter{VoterID: voterID, Guilds: refs})
	}
	return out
}

func countAdvisorless(guilds []registry.Guild) int {
	n := 0
	for _, guild := range guilds {
		if guild.AdvisorID == "" {
			n++
		}
	}
	return n
}

func guildRef(g registry.Guild) GuildRef {
	return GuildRef{ID: g.ID, Name: g.Name, CategoryTag: g.CategoryTag}
}

// sortReport is Pass E: deterministic ordering of every list-valued category
// so output is stable across runs for the same input.
func sortReport(report *Report) {
	byGuild := func(refs []GuildRef) {
		sort.Slice(refs, func(i, j int) bool {
			if refs[i].Name != refs[j].Name {
				return refs[i].Name < refs[j].Name
			}
			return refs[i].ID < refs[j].ID
		})
	}
	byGuild(report.Registry.Ownerless)
	byGuild(report.Registry.Voterless)
	byGuild(report.Registry.WrongVoter)

	sort.Slice(report.Registry.DuplicateRepresentatives, func(i, j int) bool {
		return report.Registry.DuplicateRepresentatives[i].UserID < report.Registry.DuplicateRepresentatives[j].UserID
	})
	for _, dup := range report.Registry.DuplicateRepresentatives {
		sort.Slice(dup.Guilds, func(i, j int) bool {
			return dup.Guilds[i].Guild.Name < dup.Guilds[j].Guild.Name
		})
	}

	sort.Slice(report.Registry.DuplicateVoters, func(i, j int) bool {
		return report.Registry.DuplicateVoters[i].VoterID < report.Registry.DuplicateVoters[j].VoterID
	})
	for _, dup := range report.Registry.DuplicateVoters {
		byGuild(dup.Guilds)
	}

	sort.Slice(report.Registry.InvalidInvites, func(i, j int) bool {
		a, b := report.Registry.InvalidInvites[i].Guild, report.Registry.InvalidInvites[j].Guild
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	byMember := func(refs []MemberRef) {
		sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	}
	byMember(report.Sync.UnauthorizedMembers)
	byMember(report.Sync.MissingCouncilMembers)

	sort.Slice(report.Sync.DesyncedRoles, func(i, j int) bool {
		return report.Sync.DesyncedRoles[i].Member.ID < report.Sync.DesyncedRoles[j].Member.ID
	})
}
